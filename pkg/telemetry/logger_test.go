package telemetry

import (
	"testing"

	"github.com/nubaeon/empirica/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(config.Defaults())
	assert.NotNil(t, logger)
}
