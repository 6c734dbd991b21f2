package golf

import (
	"errors"
	"fmt"
	"strings"
)

// Extraction is the set of facts an assistant pulled out of a single
// conversational turn. Every field is optional; a nil field means the
// assistant did not report it.
type Extraction struct {
	HoleNumber     *int         `json:"holeNumber,omitempty"`
	Club           *string      `json:"club,omitempty"`
	Outcome        *ShotOutcome `json:"outcome,omitempty"`
	ScoreOnHole    *int         `json:"scoreOnHole,omitempty"`
	CourseNote     *string      `json:"courseNote,omitempty"`
	PlayerTendency *string      `json:"playerTendency,omitempty"`
}

func (e Extraction) IsEmpty() bool {
	return e.HoleNumber == nil && e.Club == nil && e.Outcome == nil &&
		e.ScoreOnHole == nil && e.CourseNote == nil && e.PlayerTendency == nil
}

// ReportsShot reports whether merging e appends a shot.
func (e Extraction) ReportsShot() bool {
	return e.Club != nil || e.Outcome != nil
}

// Sanitize drops fields that cannot be applied to a round on the given
// course and returns one error per dropped field. Dropped fields behave
// exactly as if the assistant had omitted them:
//
//   - holeNumber outside [1, registry.Len()]
//   - blank club, course note or player tendency
//   - scoreOnHole <= 0
//
// Unrecognised outcomes are normalised to [OutcomeUnknown] rather than
// dropped, so the shot is still logged.
func (e Extraction) Sanitize(registry Registry) (Extraction, []error) {
	var problems []error
	clean := Extraction{}

	if e.HoleNumber != nil {
		if registry.Contains(*e.HoleNumber) {
			clean.HoleNumber = copyPtr(e.HoleNumber)
		} else {
			problems = append(problems, fmt.Errorf("holeNumber %d outside course range [1, %d]", *e.HoleNumber, registry.Len()))
		}
	}

	clean.Club = nonBlank(e.Club)
	if e.Club != nil && clean.Club == nil {
		problems = append(problems, errors.New("club is blank"))
	}

	if e.Outcome != nil {
		outcome := ParseShotOutcome(string(*e.Outcome))
		if outcome == OutcomeUnknown && !strings.EqualFold(strings.TrimSpace(string(*e.Outcome)), string(OutcomeUnknown)) {
			problems = append(problems, fmt.Errorf("outcome %q not recognised, recorded as %s", *e.Outcome, OutcomeUnknown))
		}
		clean.Outcome = &outcome
	}

	if e.ScoreOnHole != nil {
		if *e.ScoreOnHole > 0 {
			clean.ScoreOnHole = copyPtr(e.ScoreOnHole)
		} else {
			problems = append(problems, fmt.Errorf("scoreOnHole %d is not positive", *e.ScoreOnHole))
		}
	}

	clean.CourseNote = nonBlank(e.CourseNote)
	if e.CourseNote != nil && clean.CourseNote == nil {
		problems = append(problems, errors.New("courseNote is blank"))
	}
	clean.PlayerTendency = nonBlank(e.PlayerTendency)
	if e.PlayerTendency != nil && clean.PlayerTendency == nil {
		problems = append(problems, errors.New("playerTendency is blank"))
	}

	return clean, problems
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
