package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// Payload is the EEP-1 signed attestation from spec.md §3/§6.
type Payload struct {
	ContentHash         string             `json:"content_hash"`
	CreatorID           string             `json:"creator_id"`
	CreatorPublicKey    string             `json:"creator_public_key"`
	Timestamp           string             `json:"timestamp"`
	EpistemicStateFinal map[string]float64 `json:"epistemic_state_final"`
	CascadeTraceHash    string             `json:"cascade_trace_hash"`
	MetadataSources     []string           `json:"metadata_sources"`
	ModelID             string             `json:"model_id"`
	Signature           string             `json:"signature,omitempty"`
}

// unsignedPayload is the subset of fields the signature covers — every field
// of Payload except signature itself, per spec.md §6.
type unsignedPayload struct {
	ContentHash         string             `json:"content_hash"`
	CreatorID           string             `json:"creator_id"`
	CreatorPublicKey    string             `json:"creator_public_key"`
	Timestamp           string             `json:"timestamp"`
	EpistemicStateFinal map[string]float64 `json:"epistemic_state_final"`
	CascadeTraceHash    string             `json:"cascade_trace_hash"`
	MetadataSources     []string           `json:"metadata_sources"`
	ModelID             string             `json:"model_id"`
}

// SignAssessment constructs and signs an EEP-1 record over the final
// epistemic state and the session's cascade trace hash.
//
// contentSubject is the canonical-JSON-serializable subject content whose
// SHA-256 becomes content_hash (spec.md §3: "SHA-256 over a canonical-JSON
// serialization of the subject content" — typically the checkpoint or
// checkpoint set the caller is attesting to).
func (s *Service) SignAssessment(
	aiID string,
	contentSubject any,
	epistemicStateFinal map[string]float64,
	cascadeTraceHash []byte,
	metadataSources []string,
	modelID string,
	now time.Time,
) (*Payload, error) {
	contentHash, err := HashContent(contentSubject)
	if err != nil {
		return nil, err
	}

	pubPEM, err := s.ExportPublicKeyPEM(aiID)
	if err != nil {
		return nil, err
	}

	unsigned := unsignedPayload{
		ContentHash:         hex.EncodeToString(contentHash),
		CreatorID:           aiID,
		CreatorPublicKey:    pubPEM,
		Timestamp:           now.UTC().Format(time.RFC3339),
		EpistemicStateFinal: epistemicStateFinal,
		CascadeTraceHash:    hex.EncodeToString(cascadeTraceHash),
		MetadataSources:     metadataSources,
		ModelID:             modelID,
	}

	canonical, err := CanonicalJSON(unsigned)
	if err != nil {
		return nil, err
	}

	signature, err := s.Sign(canonical, aiID)
	if err != nil {
		return nil, err
	}

	return &Payload{
		ContentHash:         unsigned.ContentHash,
		CreatorID:           unsigned.CreatorID,
		CreatorPublicKey:    unsigned.CreatorPublicKey,
		Timestamp:           unsigned.Timestamp,
		EpistemicStateFinal: unsigned.EpistemicStateFinal,
		CascadeTraceHash:    unsigned.CascadeTraceHash,
		MetadataSources:     unsigned.MetadataSources,
		ModelID:             unsigned.ModelID,
		Signature:           base64.StdEncoding.EncodeToString(signature),
	}, nil
}

// VerifyPayload re-derives the unsigned subset of p, re-hashes and
// re-verifies the signature against p.CreatorPublicKey, and reports whether
// p is intact and was signed by the key it carries.
func (s *Service) VerifyPayload(p *Payload) (bool, error) {
	unsigned := unsignedPayload{
		ContentHash:         p.ContentHash,
		CreatorID:           p.CreatorID,
		CreatorPublicKey:    p.CreatorPublicKey,
		Timestamp:           p.Timestamp,
		EpistemicStateFinal: p.EpistemicStateFinal,
		CascadeTraceHash:    p.CascadeTraceHash,
		MetadataSources:     p.MetadataSources,
		ModelID:             p.ModelID,
	}

	canonical, err := CanonicalJSON(unsigned)
	if err != nil {
		return false, err
	}

	signature, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil {
		return false, err
	}

	pub, err := parsePublicKeyPEM(p.CreatorPublicKey)
	if err != nil {
		return false, err
	}

	return s.VerifyRaw(canonical, signature, pub), nil
}

// HashContent computes SHA-256 over the canonical-JSON serialization of
// subject.
func HashContent(subject any) ([]byte, error) {
	canonical, err := CanonicalJSON(subject)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}

// TraceHash computes SHA-256 over the ordered concatenation of checkpoint
// ids, used as cascade_trace_hash (spec.md §3/§4.5).
func TraceHash(checkpointIDs []string) []byte {
	h := sha256.New()
	for _, id := range checkpointIDs {
		h.Write([]byte(id))
	}
	return h.Sum(nil)
}
