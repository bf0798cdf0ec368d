package vector

import "github.com/go-playground/validator/v10"

var componentTags = validator.New()

// Component is a scored belief on a single epistemic dimension.
//
// Invariant: WarrantsInvestigation implies InvestigationPriority >= 1.
type Component struct {
	Score                 float64 `json:"score" validate:"gte=0,lte=1"`
	Rationale             string  `json:"rationale" validate:"required"`
	Evidence              string  `json:"evidence,omitempty"`
	WarrantsInvestigation bool    `json:"warrants_investigation"`
	InvestigationPriority int     `json:"investigation_priority" validate:"gte=0,lte=10"`
}

// validate checks the component-level invariants spec.md §3 requires. The
// range and required-field checks run through componentTags; the
// warrants/priority implication is cross-field and can't be expressed as a
// struct tag, so it's checked by hand.
func (c Component) validate(name string) error {
	if err := componentTags.Struct(c); err != nil {
		return newInvalidVectorError(name, err.Error())
	}
	if c.WarrantsInvestigation && c.InvestigationPriority < 1 {
		return newInvalidVectorError(name, "warrants_investigation is true but investigation_priority is 0")
	}
	return nil
}

// densityInverted returns the score used in tier-mean computation: density
// is inverted because excessive density is undesirable (spec.md §3).
func (c Component) densityInverted() float64 {
	return 1 - c.Score
}
