package cascade

// InvestigationRoundLog records one INVESTIGATE round's findings, per
// spec.md §4.4: {round, findings_digest, vector_delta}.
type InvestigationRoundLog struct {
	Round          int
	FindingsDigest string
	VectorDelta    map[string]float64
}

// Result is the outcome Run returns for every terminal state except a raw
// propagated transport/identity/storage error (those come back as Run's
// error return instead, per spec.md §7's propagation policy).
type Result struct {
	SessionID string
	AIID      string
	Status    Status
	Phase     Phase
	Round     int

	// FinalVector is the last vector the cascade computed, persona-blended
	// if a persona was bound. Nil only for a CANCELED result returned before
	// PREFLIGHT produced a vector; a FAULTED PREFLIGHT carries the neutral
	// diagnostic vector its checkpoint was written with.
	FinalVector map[string]float64

	CheckpointIDs    []string
	InvestigationLog []InvestigationRoundLog

	// Delta and CalibrationAccuracy are set only on a COMPLETED result
	// (POSTFLIGHT's componentwise delta against the PREFLIGHT baseline and
	// the derived calibration score, per spec.md §4.4).
	Delta               map[string]float64
	CalibrationAccuracy float64

	// FaultReason carries the underlying error for a FAULTED result; nil
	// for every other status.
	FaultReason error
}
