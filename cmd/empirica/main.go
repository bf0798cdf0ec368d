// Command empirica runs the cascade state machine that supervises one LM
// agent in one session: PREFLIGHT, optional THINK, INVESTIGATE rounds,
// CHECK, ACT, POSTFLIGHT, with every phase checkpointed and signable.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	envPath := getEnv("EMPIRICA_ENV_FILE", ".env")
	if err := godotenv.Load(envPath); err != nil {
		fmt.Fprintf(os.Stderr, "empirica: no %s found, continuing with existing environment\n", envPath)
	}

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
