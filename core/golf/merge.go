package golf

import (
	"fmt"
	"slices"
	"strings"
)

// MergeResult is the outcome of folding one [Extraction] into a round.
type MergeResult struct {
	Round     Round
	HoleIndex int

	// ShotLogged and Scored report which hole-by-hole updates were applied.
	ShotLogged bool
	Scored     bool

	// CourseNote and PlayerTendency carry the learning requests that the
	// caller is expected to forward to the course-notes and player-profile
	// stores. NoteHoleNumber is the hole the note belongs to.
	CourseNote     string
	NoteHoleNumber int
	PlayerTendency string

	// Learning is the annotation describing the learning requests above, or
	// empty if there were none.
	Learning string
}

// Merge folds payload into round, with holeIndex pointing at the hole under
// discussion. It never mutates its inputs.
//
// A holeNumber outside the course is ignored for both pointer switching and
// as the merge target; the update lands on the current hole instead.
// Every payload carrying a club or outcome appends a shot, so repeating the
// same payload logs the shot twice.
func Merge(round Round, registry Registry, holeIndex int, payload Extraction) MergeResult {
	holeIndex = registry.ValidIndex(holeIndex)
	current := registry.Hole(holeIndex)

	result := MergeResult{Round: round, HoleIndex: holeIndex}

	target := current.HoleNumber
	if payload.HoleNumber != nil && registry.Contains(*payload.HoleNumber) {
		target = *payload.HoleNumber
		if target != current.HoleNumber {
			result.HoleIndex = target - 1
		}
	}

	position := slices.IndexFunc(round.HoleByHole, func(p HolePerformance) bool {
		return p.HoleNumber == target
	})

	var performance HolePerformance
	if position >= 0 {
		performance = round.HoleByHole[position].clone()
	} else {
		performance = HolePerformance{HoleNumber: target, Shots: []Shot{}}
	}

	if payload.ReportsShot() {
		shot := Shot{Club: "Unknown", Lie: UnknownLie, Outcome: OutcomeUnknown}
		if payload.Club != nil {
			shot.Club = *payload.Club
		}
		if payload.Outcome != nil {
			shot.Outcome = *payload.Outcome
		}
		performance.Shots = append(performance.Shots, shot)
		result.ShotLogged = true
	}

	if payload.ScoreOnHole != nil {
		performance.Score = *payload.ScoreOnHole
		result.Scored = true
	}

	if result.ShotLogged || result.Scored {
		holeByHole := slices.Clone(round.HoleByHole)
		if position >= 0 {
			holeByHole[position] = performance
		} else {
			holeByHole = append(holeByHole, performance)
		}
		result.Round.HoleByHole = holeByHole
	}

	var learning []string
	if payload.CourseNote != nil {
		result.CourseNote = *payload.CourseNote
		result.NoteHoleNumber = current.HoleNumber
		learning = append(learning, fmt.Sprintf("Added a new note for Hole %d.", current.HoleNumber))
	}
	if payload.PlayerTendency != nil {
		result.PlayerTendency = *payload.PlayerTendency
		learning = append(learning, "Updated your player profile.")
	}
	result.Learning = strings.Join(learning, " ")

	return result
}
