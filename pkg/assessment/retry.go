package assessment

// ParseWithRetry is the parser-level mechanical retry: it calls Parse, and
// whenever Parse returns an error (malformed reply, missing component,
// out-of-range score, inconsistent flags), asks again via reask and parses
// the new reply, parsing at most maxAttempts times in total before returning
// the last error. This is distinct from the cascade's
// own retry-once-then-fault policy (spec.md §4.4/§7), which retries an
// entire phase (a fresh LM call with the identical prompt) rather than
// re-requesting just the reply shape.
//
// reask is called with the previous malformed reply and should return a new
// raw reply text (typically by re-prompting the LM with a reminder of the
// expected shape); ParseWithRetry does not itself talk to an LM transport.
func ParseWithRetry(reply string, maxAttempts int, reask func(prevReply string) (string, error)) (*Result, error) {
	result, err := Parse(reply)
	for attempt := 1; err != nil && attempt < maxAttempts; attempt++ {
		var reaskErr error
		reply, reaskErr = reask(reply)
		if reaskErr != nil {
			return nil, reaskErr
		}
		result, err = Parse(reply)
	}
	return result, err
}
