// Package agentmsg implements the inter-agent message envelope and the
// abstract send/on_receive transport contract from spec.md §6. No concrete
// transport (NATS, gRPC, HTTP) is implemented — spec.md places picking one
// out of scope — so the only transport provided here is InMemoryBus, a
// same-process test double.
package agentmsg

import (
	"encoding/base64"
	"time"

	"github.com/nubaeon/empirica/pkg/identity"
)

// Type is one of the seven message types the core cascade produces or
// consumes, per spec.md §6.
type Type string

const (
	StatusReport        Type = "STATUS_REPORT"
	ProceedToAct        Type = "PROCEED_TO_ACT"
	RequestReassessment Type = "REQUEST_REASSESSMENT"
	Terminate           Type = "TERMINATE"
	EscalationRequest   Type = "ESCALATION_REQUEST"
	CompletionReport    Type = "COMPLETION_REPORT"
	ErrorReport         Type = "ERROR_REPORT"
)

// Envelope is the inter-agent message shape spec.md §6 names:
// {message_type, sender_id, recipient_id?, timestamp, payload, signature}.
// SenderPublicKey is carried alongside the signature (the same
// self-contained-attestation shape pkg/identity.Payload uses) so a receiver
// with no prior relationship to sender_id can still verify the envelope.
type Envelope struct {
	MessageType     Type           `json:"message_type"`
	SenderID        string         `json:"sender_id"`
	SenderPublicKey string         `json:"sender_public_key"`
	RecipientID     string         `json:"recipient_id,omitempty"`
	Timestamp       string         `json:"timestamp"`
	Payload         map[string]any `json:"payload"`
	Signature       string         `json:"signature"`
}

// unsignedEnvelope is every Envelope field except Signature itself — the
// subset the signature covers.
type unsignedEnvelope struct {
	MessageType     Type           `json:"message_type"`
	SenderID        string         `json:"sender_id"`
	SenderPublicKey string         `json:"sender_public_key"`
	RecipientID     string         `json:"recipient_id,omitempty"`
	Timestamp       string         `json:"timestamp"`
	Payload         map[string]any `json:"payload"`
}

// Seal builds and signs an Envelope as senderAIID, using svc's local key
// material.
func Seal(svc *identity.Service, senderAIID string, msgType Type, recipientID string, payload map[string]any, now time.Time) (*Envelope, error) {
	pubPEM, err := svc.ExportPublicKeyPEM(senderAIID)
	if err != nil {
		return nil, err
	}

	unsigned := unsignedEnvelope{
		MessageType:     msgType,
		SenderID:        senderAIID,
		SenderPublicKey: pubPEM,
		RecipientID:     recipientID,
		Timestamp:       now.UTC().Format(time.RFC3339),
		Payload:         payload,
	}

	canonical, err := identity.CanonicalJSON(unsigned)
	if err != nil {
		return nil, err
	}

	sig, err := svc.Sign(canonical, senderAIID)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		MessageType:     unsigned.MessageType,
		SenderID:        unsigned.SenderID,
		SenderPublicKey: unsigned.SenderPublicKey,
		RecipientID:     unsigned.RecipientID,
		Timestamp:       unsigned.Timestamp,
		Payload:         unsigned.Payload,
		Signature:       base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify reports whether e carries a valid Ed25519 signature over its own
// unsigned subset under its embedded SenderPublicKey. Per spec.md §6's
// explicit requirement, the core refuses unsigned or badly-signed inbound
// envelopes — callers must check this before dispatching to a handler.
func Verify(e *Envelope) (bool, error) {
	if e.Signature == "" {
		return false, nil
	}

	unsigned := unsignedEnvelope{
		MessageType:     e.MessageType,
		SenderID:        e.SenderID,
		SenderPublicKey: e.SenderPublicKey,
		RecipientID:     e.RecipientID,
		Timestamp:       e.Timestamp,
		Payload:         e.Payload,
	}

	canonical, err := identity.CanonicalJSON(unsigned)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil {
		return false, nil
	}

	pub, err := identity.ParsePublicKeyPEM(e.SenderPublicKey)
	if err != nil {
		return false, err
	}

	return identity.VerifyRaw(canonical, sig, pub), nil
}
