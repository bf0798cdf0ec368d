package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullClientReturnsFixedReply(t *testing.T) {
	c := NullClient{Reply: `{"confidence":0.8}`}
	reply, err := c.Ask(context.Background(), "anything", "model-x")
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":0.8}`, reply)
}

func TestNullClientReturnsConfiguredError(t *testing.T) {
	wantErr := errors.New("boom")
	c := NullClient{Err: wantErr}
	_, err := c.Ask(context.Background(), "anything", "model-x")
	assert.ErrorIs(t, err, wantErr)
}

func TestFuncClientWrapsCall(t *testing.T) {
	calls := 0
	c := FuncClient(func(ctx context.Context, prompt, modelID string) (string, error) {
		calls++
		return "reply-" + prompt, nil
	})

	reply, err := c.Ask(context.Background(), "p1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "reply-p1", reply)
	assert.Equal(t, 1, calls)
}
