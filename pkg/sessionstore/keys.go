package sessionstore

import "fmt"

// Key composition helpers for the four keyspaces spec.md §6 names. Callers
// should build keys exclusively through these so the keyspace layout lives
// in one place.

// SessionKey is the metadata key for a session.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s", sessionID)
}

// SessionPrefix returns the prefix matching exactly SessionKey(sessionID).
func SessionPrefix(sessionID string) string {
	return SessionKey(sessionID)
}

// AssessmentKey is the full parsed-vector key for one phase/round.
func AssessmentKey(sessionID, phase string, round int) string {
	return fmt.Sprintf("assessments/%s/%s/%d", sessionID, phase, round)
}

// AssessmentSessionPrefix matches every assessment recorded for sessionID.
func AssessmentSessionPrefix(sessionID string) string {
	return fmt.Sprintf("assessments/%s/", sessionID)
}

// GoalKey is the record key for a goal.
func GoalKey(goalID string) string {
	return fmt.Sprintf("goals/%s", goalID)
}

// GoalsPrefix matches every goal record.
func GoalsPrefix() string {
	return "goals/"
}

// IdentityKey is the public-key-metadata key for an agent identity.
func IdentityKey(aiID string) string {
	return fmt.Sprintf("identities/%s", aiID)
}
