// Package golf holds the round record types and the pure logic that folds
// assistant extractions into them.
//
// Every function in this package is side-effect free. Values returned from
// [Merge] and the Round helpers never share mutable backing arrays with their
// inputs, so callers can keep older Round values around as history.
package golf

import (
	"slices"
	"strings"
	"time"
)

type ShotOutcome string

const (
	OutcomeFairway ShotOutcome = "Fairway"
	OutcomeGreen   ShotOutcome = "Green"
	OutcomeRough   ShotOutcome = "Rough"
	OutcomeBunker  ShotOutcome = "Bunker"
	OutcomeWater   ShotOutcome = "Water"
	OutcomeOB      ShotOutcome = "OB"
	OutcomeInHole  ShotOutcome = "In Hole"
	OutcomePenalty ShotOutcome = "Penalty"
	OutcomeUnknown ShotOutcome = "Unknown"
)

// ShotOutcomes lists the outcomes an assistant may report. Unknown is the
// fallback and is deliberately not part of it.
var ShotOutcomes = []ShotOutcome{
	OutcomeFairway, OutcomeGreen, OutcomeRough, OutcomeBunker,
	OutcomeWater, OutcomeOB, OutcomeInHole, OutcomePenalty,
}

// ParseShotOutcome matches s case-insensitively against the known outcomes.
// Anything else maps to [OutcomeUnknown].
func ParseShotOutcome(s string) ShotOutcome {
	s = strings.TrimSpace(s)
	for _, outcome := range ShotOutcomes {
		if strings.EqualFold(s, string(outcome)) {
			return outcome
		}
	}
	return OutcomeUnknown
}

func (o ShotOutcome) IsValid() bool {
	return o == OutcomeUnknown || slices.Contains(ShotOutcomes, o)
}

const UnknownLie = "Unknown"

type Shot struct {
	Club    string      `json:"club"`
	Lie     string      `json:"lie"`
	Outcome ShotOutcome `json:"outcome"`
	Notes   string      `json:"notes,omitempty"`
}

// HolePerformance is the record of a single hole within a round. Shots are
// append-only, Score is last-write-wins.
type HolePerformance struct {
	HoleNumber int    `json:"holeNumber"`
	Shots      []Shot `json:"shots"`
	Score      int    `json:"score"`
	Putts      int    `json:"putts"`
}

func (p HolePerformance) clone() HolePerformance {
	p.Shots = slices.Clone(p.Shots)
	if p.Shots == nil {
		p.Shots = []Shot{}
	}
	return p
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type ChatMessage struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Learning describes a profile or course-note update performed while
	// producing this message. Only set on assistant messages.
	Learning string `json:"learning,omitempty"`
}

type Round struct {
	ID           string            `json:"id"`
	Date         time.Time         `json:"date"`
	Conditions   string            `json:"conditions"`
	HoleByHole   []HolePerformance `json:"holeByHole"`
	TotalScore   int               `json:"totalScore"`
	Conversation []ChatMessage     `json:"conversation"`
	Finished     bool              `json:"finished"`
}

// WithMessage returns a copy of r with msg appended to the conversation.
func (r Round) WithMessage(msg ChatMessage) Round {
	r.Conversation = append(slices.Clip(r.Conversation), msg)
	return r
}

// Performance returns the entry for holeNumber, if one has been recorded.
func (r Round) Performance(holeNumber int) (HolePerformance, bool) {
	for _, p := range r.HoleByHole {
		if p.HoleNumber == holeNumber {
			return p.clone(), true
		}
	}
	return HolePerformance{}, false
}

func (r Round) SumScores() int {
	total := 0
	for _, p := range r.HoleByHole {
		total += p.Score
	}
	return total
}

// Finish freezes the round, making TotalScore authoritative.
func (r Round) Finish() Round {
	r.TotalScore = r.SumScores()
	r.Finished = true
	return r
}

type Hole struct {
	HoleNumber  int      `json:"holeNumber"`
	Par         int      `json:"par"`
	Yardage     int      `json:"yardage"`
	Description string   `json:"description"`
	Notes       []string `json:"notes,omitempty"`
}

type Course struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Holes []Hole `json:"holes"`
}

type PlayerProfile struct {
	Tendencies []string `json:"tendencies"`
}
