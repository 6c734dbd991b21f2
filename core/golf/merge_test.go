package golf

import (
	"reflect"
	"testing"
)

func testRegistry(t *testing.T, holes int) Registry {
	t.Helper()
	registry, err := NewRegistry(DefaultHoles(holes))
	if err != nil {
		t.Fatalf("expected registry to build, got %v", err)
	}
	return registry
}

func TestMergeEmptyPayloadOnEmptyRoundKeepsHoleByHoleEmpty(t *testing.T) {
	registry := testRegistry(t, 18)
	round := Round{HoleByHole: []HolePerformance{}}

	result := Merge(round, registry, 0, Extraction{})

	if len(result.Round.HoleByHole) != 0 {
		t.Fatalf("expected empty hole-by-hole, got %v", result.Round.HoleByHole)
	}
	if result.HoleIndex != 0 {
		t.Fatalf("expected hole pointer to stay at 0, got %d", result.HoleIndex)
	}
	if result.Learning != "" {
		t.Fatalf("expected no learning annotation, got %q", result.Learning)
	}
}

func TestMergeShotOnFirstHole(t *testing.T) {
	registry := testRegistry(t, 18)
	outcome := OutcomeFairway

	result := Merge(Round{}, registry, 0, Extraction{Club: ptr("Driver"), Outcome: &outcome})

	expected := []HolePerformance{{
		HoleNumber: 1,
		Shots:      []Shot{{Club: "Driver", Lie: "Unknown", Outcome: OutcomeFairway}},
	}}
	if !reflect.DeepEqual(result.Round.HoleByHole, expected) {
		t.Fatalf("expected %+v, got %+v", expected, result.Round.HoleByHole)
	}
	if !result.ShotLogged || result.Scored {
		t.Fatalf("expected only a shot to be logged, got shot=%t scored=%t", result.ShotLogged, result.Scored)
	}
}

func TestMergeScoreOverwritesWithoutTouchingShots(t *testing.T) {
	registry := testRegistry(t, 18)
	outcome := OutcomeFairway
	first := Merge(Round{}, registry, 0, Extraction{Club: ptr("Driver"), Outcome: &outcome})

	second := Merge(first.Round, registry, first.HoleIndex, Extraction{ScoreOnHole: ptr(4)})

	if len(second.Round.HoleByHole) != 1 {
		t.Fatalf("expected a single entry, got %d", len(second.Round.HoleByHole))
	}
	entry := second.Round.HoleByHole[0]
	if entry.Score != 4 {
		t.Fatalf("expected score 4, got %d", entry.Score)
	}
	if len(entry.Shots) != 1 {
		t.Fatalf("expected shots to be unchanged, got %v", entry.Shots)
	}

	third := Merge(second.Round, registry, second.HoleIndex, Extraction{ScoreOnHole: ptr(5)})
	if got := third.Round.HoleByHole[0].Score; got != 5 {
		t.Fatalf("expected last score to win, got %d", got)
	}
	if got := second.Round.HoleByHole[0].Score; got != 4 {
		t.Fatalf("expected earlier round value to be untouched, got %d", got)
	}
}

func TestMergeHoleSwitchAppendsAfterExistingEntry(t *testing.T) {
	registry := testRegistry(t, 18)
	outcome := OutcomeFairway
	first := Merge(Round{}, registry, 0, Extraction{Club: ptr("Driver"), Outcome: &outcome})

	result := Merge(first.Round, registry, 0, Extraction{HoleNumber: ptr(2), ScoreOnHole: ptr(5)})

	if result.HoleIndex != 1 {
		t.Fatalf("expected pointer to move to index 1, got %d", result.HoleIndex)
	}
	if len(result.Round.HoleByHole) != 2 {
		t.Fatalf("expected two entries, got %d", len(result.Round.HoleByHole))
	}
	expected := HolePerformance{HoleNumber: 2, Shots: []Shot{}, Score: 5}
	if !reflect.DeepEqual(result.Round.HoleByHole[1], expected) {
		t.Fatalf("expected %+v appended, got %+v", expected, result.Round.HoleByHole[1])
	}
	if result.Round.HoleByHole[0].HoleNumber != 1 {
		t.Fatalf("expected hole 1 entry to keep its position")
	}
}

func TestMergeHoleNumberWithoutUpdateOnlyMovesPointer(t *testing.T) {
	registry := testRegistry(t, 9)

	result := Merge(Round{}, registry, 0, Extraction{HoleNumber: ptr(3)})

	if result.HoleIndex != 2 {
		t.Fatalf("expected pointer at index 2, got %d", result.HoleIndex)
	}
	if len(result.Round.HoleByHole) != 0 {
		t.Fatalf("expected no hole-by-hole entries, got %v", result.Round.HoleByHole)
	}
}

func TestMergeOutOfRangeHoleNumberTargetsCurrentHole(t *testing.T) {
	registry := testRegistry(t, 9)

	result := Merge(Round{}, registry, 4, Extraction{HoleNumber: ptr(42), ScoreOnHole: ptr(3)})

	if result.HoleIndex != 4 {
		t.Fatalf("expected pointer to stay at index 4, got %d", result.HoleIndex)
	}
	if len(result.Round.HoleByHole) != 1 || result.Round.HoleByHole[0].HoleNumber != 5 {
		t.Fatalf("expected the score to land on hole 5, got %+v", result.Round.HoleByHole)
	}
}

func TestMergeRepeatedShotPayloadAppendsEachTime(t *testing.T) {
	registry := testRegistry(t, 18)
	payload := Extraction{Club: ptr("7-Iron")}

	round := Round{}
	for range 3 {
		round = Merge(round, registry, 0, payload).Round
	}

	if len(round.HoleByHole) != 1 {
		t.Fatalf("expected one entry, got %d", len(round.HoleByHole))
	}
	shots := round.HoleByHole[0].Shots
	if len(shots) != 3 {
		t.Fatalf("expected 3 shots, got %d", len(shots))
	}
	for _, shot := range shots {
		if shot.Outcome != OutcomeUnknown || shot.Lie != UnknownLie {
			t.Fatalf("expected unknown outcome and lie defaults, got %+v", shot)
		}
	}
}

func TestMergeShotOnlyTouchesTargetHole(t *testing.T) {
	registry := testRegistry(t, 18)
	round := Round{HoleByHole: []HolePerformance{
		{HoleNumber: 3, Shots: []Shot{{Club: "Driver"}}, Score: 4},
		{HoleNumber: 1, Shots: []Shot{{Club: "Driver"}, {Club: "Putter"}}, Score: 5},
	}}
	outcome := OutcomeBunker

	result := Merge(round, registry, 0, Extraction{Outcome: &outcome})

	if got := len(result.Round.HoleByHole[1].Shots); got != 3 {
		t.Fatalf("expected hole 1 to gain a shot, got %d", got)
	}
	if got := len(result.Round.HoleByHole[0].Shots); got != 1 {
		t.Fatalf("expected hole 3 to keep 1 shot, got %d", got)
	}
	if got := len(round.HoleByHole[1].Shots); got != 2 {
		t.Fatalf("expected input round to be untouched, got %d shots", got)
	}
	if result.Round.HoleByHole[1].Shots[2].Club != "Unknown" {
		t.Fatalf("expected missing club to default to Unknown")
	}
}

func TestMergeLearningAnnotations(t *testing.T) {
	registry := testRegistry(t, 18)

	result := Merge(Round{}, registry, 6, Extraction{
		HoleNumber:     ptr(8),
		CourseNote:     ptr("Green slopes hard back to front"),
		PlayerTendency: ptr("Fades the driver under pressure"),
	})

	if result.Learning != "Added a new note for Hole 7. Updated your player profile." {
		t.Fatalf("unexpected learning annotation %q", result.Learning)
	}
	if result.NoteHoleNumber != 7 {
		t.Fatalf("expected note filed against hole 7, got %d", result.NoteHoleNumber)
	}
	if result.PlayerTendency != "Fades the driver under pressure" {
		t.Fatalf("unexpected tendency %q", result.PlayerTendency)
	}
	if len(result.Round.HoleByHole) != 0 {
		t.Fatalf("expected learning-only payload to leave hole-by-hole alone")
	}
}

func TestMergeNeverDuplicatesHoleEntries(t *testing.T) {
	registry := testRegistry(t, 4)
	payloads := []Extraction{
		{HoleNumber: ptr(2), ScoreOnHole: ptr(3)},
		{Club: ptr("Driver")},
		{HoleNumber: ptr(1), ScoreOnHole: ptr(4)},
		{HoleNumber: ptr(2), Club: ptr("Putter")},
		{ScoreOnHole: ptr(6)},
		{HoleNumber: ptr(4)},
		{ScoreOnHole: ptr(2)},
	}

	round, index := Round{}, 0
	for _, payload := range payloads {
		result := Merge(round, registry, index, payload)
		round, index = result.Round, result.HoleIndex
	}

	seen := map[int]bool{}
	for _, p := range round.HoleByHole {
		if seen[p.HoleNumber] {
			t.Fatalf("duplicate entry for hole %d in %+v", p.HoleNumber, round.HoleByHole)
		}
		seen[p.HoleNumber] = true
	}
	order := []int{}
	for _, p := range round.HoleByHole {
		order = append(order, p.HoleNumber)
	}
	if !reflect.DeepEqual(order, []int{2, 1, 4}) {
		t.Fatalf("expected first-touched order [2 1 4], got %v", order)
	}
	if round.SumScores() != 6+4+2 {
		t.Fatalf("expected sum 12, got %d", round.SumScores())
	}
}
