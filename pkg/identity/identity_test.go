package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIdentity_RefusesOverwriteByDefault(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)

	_, err := svc.CreateIdentity("agent-a", false)
	require.NoError(t, err)

	_, err = svc.CreateIdentity("agent-a", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentityExists))

	_, err = svc.CreateIdentity("agent-a", true)
	require.NoError(t, err)
}

func TestSignAndVerifyRaw(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)
	_, err := svc.CreateIdentity("agent-a", false)
	require.NoError(t, err)

	payload := []byte("hello empirica")
	sig, err := svc.Sign(payload, "agent-a")
	require.NoError(t, err)

	pubPEM, err := svc.ExportPublicKeyPEM("agent-a")
	require.NoError(t, err)
	pub, err := parsePublicKeyPEM(pubPEM)
	require.NoError(t, err)

	assert.True(t, svc.VerifyRaw(payload, sig, pub))
	assert.False(t, svc.VerifyRaw([]byte("tampered"), sig, pub))
}

func TestSignUnknownIdentity(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.Sign([]byte("x"), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownIdentity))
}

func TestSignAssessmentAndVerifyPayload(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)
	_, err := svc.CreateIdentity("agent-a", false)
	require.NoError(t, err)

	state := map[string]float64{"engagement": 0.85, "uncertainty": 0.20}
	traceHash := TraceHash([]string{"cp1", "cp2"})

	payload, err := svc.SignAssessment("agent-a", map[string]string{"checkpoint": "cp2"}, state, traceHash, []string{"https://example/evidence"}, "test-model", time.Unix(0, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Signature)

	ok, err := svc.VerifyPayload(payload)
	require.NoError(t, err)
	assert.True(t, ok)

	payload.EpistemicStateFinal["engagement"] = 0.01
	ok, err = svc.VerifyPayload(payload)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	a, err := CanonicalJSON(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(a))
}
