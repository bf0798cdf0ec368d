package agentmsg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/identity"
)

func newIdentity(t *testing.T, aiID string) *identity.Service {
	t.Helper()
	svc := identity.NewService(t.TempDir())
	_, err := svc.CreateIdentity(aiID, false)
	require.NoError(t, err)
	return svc
}

func TestSealAndVerify(t *testing.T) {
	svc := newIdentity(t, "agent-a")

	e, err := Seal(svc, "agent-a", StatusReport, "agent-b", map[string]any{"confidence": 0.7}, time.Unix(100, 0))
	require.NoError(t, err)

	ok, err := Verify(e)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyFailsOnTamperedPayload(t *testing.T) {
	svc := newIdentity(t, "agent-a")

	e, err := Seal(svc, "agent-a", ProceedToAct, "", map[string]any{"round": 1.0}, time.Unix(100, 0))
	require.NoError(t, err)

	e.Payload["round"] = 99.0

	ok, err := Verify(e)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyFailsOnMissingSignature(t *testing.T) {
	e := &Envelope{MessageType: Terminate, SenderID: "agent-a"}
	ok, err := Verify(e)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryBusDispatchesOnlyVerifiedEnvelopes(t *testing.T) {
	svc := newIdentity(t, "agent-a")
	bus := NewInMemoryBus()

	received := []*Envelope{}
	bus.OnReceive("agent-b", func(e *Envelope) error {
		received = append(received, e)
		return nil
	})

	e, err := Seal(svc, "agent-a", EscalationRequest, "agent-b", map[string]any{"reason": "blocked"}, time.Unix(200, 0))
	require.NoError(t, err)
	require.NoError(t, bus.Send(e))
	require.Len(t, received, 1)
	assert.Equal(t, EscalationRequest, received[0].MessageType)

	e.Signature = "tampered"
	err = bus.Send(e)
	assert.ErrorIs(t, err, ErrUnverifiedEnvelope)
	assert.Len(t, received, 1)
}

func TestInMemoryBusBroadcastHandler(t *testing.T) {
	svc := newIdentity(t, "agent-a")
	bus := NewInMemoryBus()

	var broadcastCount, directCount int
	bus.OnReceive("", func(e *Envelope) error { broadcastCount++; return nil })
	bus.OnReceive("agent-b", func(e *Envelope) error { directCount++; return nil })

	e, err := Seal(svc, "agent-a", CompletionReport, "agent-b", nil, time.Unix(300, 0))
	require.NoError(t, err)
	require.NoError(t, bus.Send(e))

	assert.Equal(t, 1, broadcastCount)
	assert.Equal(t, 1, directCount)
}
