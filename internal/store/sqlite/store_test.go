package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/koscakluka/ema-caddie/core/golf"
	"github.com/koscakluka/ema-caddie/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "caddie.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addCourse(t *testing.T, store *sqlite.Store) golf.Course {
	t.Helper()
	holes := golf.DefaultHoles(3)
	holes[1].Par = 3
	holes[1].Yardage = 165
	holes[1].Description = "Island green"
	holes[2].Notes = []string{"Wind swirls off the lake"}

	course, err := golf.NewCourse("Pine Valley", holes)
	require.NoError(t, err)
	require.NoError(t, store.AddCourse(context.Background(), course))
	return course
}

func finishedRound(id string, scores ...int) golf.Round {
	round := golf.Round{
		ID:         id,
		Date:       time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		Conditions: "Calm",
	}
	for i, score := range scores {
		round.HoleByHole = append(round.HoleByHole, golf.HolePerformance{
			HoleNumber: i + 1,
			Shots:      []golf.Shot{},
			Score:      score,
		})
	}
	return round.Finish()
}

func TestCourse_RoundTrip(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)

	got, err := store.Course(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, got.ID)
	assert.Equal(t, "Pine Valley", got.Name)
	require.Len(t, got.Holes, 3)
	assert.Equal(t, 3, got.Holes[1].Par)
	assert.Equal(t, 165, got.Holes[1].Yardage)
	assert.Equal(t, "Island green", got.Holes[1].Description)
	assert.Equal(t, []string{"Wind swirls off the lake"}, got.Holes[2].Notes)
	assert.Empty(t, got.Holes[0].Notes)
}

func TestCourse_NotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.Course(context.Background(), "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	_, err = store.CourseStats(context.Background(), "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestAddCourse_RejectsBadHoles(t *testing.T) {
	store := openStore(t)
	course := golf.Course{ID: "c1", Name: "Broken", Holes: []golf.Hole{{HoleNumber: 2, Par: 4}}}

	err := store.AddCourse(context.Background(), course)
	assert.ErrorIs(t, err, golf.ErrHoleNumbering)
}

func TestCourses_SortedByName(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, name := range []string{"Torrey Pines", "Augusta"} {
		course, err := golf.NewCourse(name, golf.DefaultHoles(2))
		require.NoError(t, err)
		require.NoError(t, store.AddCourse(ctx, course))
	}

	courses, err := store.Courses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Augusta", courses[0].Name)
	assert.Equal(t, "Torrey Pines", courses[1].Name)
	assert.Len(t, courses[0].Holes, 2)
}

func TestAddNote(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)
	ctx := context.Background()

	require.NoError(t, store.AddNote(ctx, course.ID, 1, "  Tee it low into the wind "))
	require.NoError(t, store.AddNote(ctx, course.ID, 1, "Miss left"))

	got, err := store.Course(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tee it low into the wind", "Miss left"}, got.Holes[0].Notes)
}

func TestAddNote_Rejected(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddNote(ctx, course.ID, 1, "   "), sqlite.ErrEmptyText)
	assert.ErrorIs(t, store.AddNote(ctx, course.ID, 4, "Off the map"), sqlite.ErrNotFound)
	assert.ErrorIs(t, store.AddNote(ctx, "missing", 1, "No course"), sqlite.ErrNotFound)
}

func TestSaveRound_UpsertKeepsPosition(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)
	ctx := context.Background()

	first := golf.Round{ID: "r1", Date: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, store.SaveRound(ctx, course.ID, first))
	require.NoError(t, store.SaveRound(ctx, course.ID, finishedRound("r2", 4, 3, 5)))

	first = first.WithMessage(golf.ChatMessage{Sender: golf.SenderUser, Text: "Driver, fairway"})
	first.HoleByHole = []golf.HolePerformance{{HoleNumber: 1, Shots: []golf.Shot{{Club: "Driver", Lie: "Tee", Outcome: golf.OutcomeFairway}}}}
	require.NoError(t, store.SaveRound(ctx, course.ID, first))

	rounds, err := store.Rounds(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "r1", rounds[0].ID)
	assert.Equal(t, "r2", rounds[1].ID)
	assert.True(t, rounds[0].Date.Equal(first.Date))
	require.Len(t, rounds[0].Conversation, 1)
	assert.Equal(t, "Driver, fairway", rounds[0].Conversation[0].Text)
	require.Len(t, rounds[0].HoleByHole, 1)
	assert.Equal(t, golf.OutcomeFairway, rounds[0].HoleByHole[0].Shots[0].Outcome)
	assert.True(t, rounds[1].Finished)
	assert.Equal(t, 12, rounds[1].TotalScore)
}

func TestSaveRound_Rejected(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)
	ctx := context.Background()

	assert.Error(t, store.SaveRound(ctx, course.ID, golf.Round{}))
	assert.Error(t, store.SaveRound(ctx, "missing", golf.Round{ID: "r1"}))
}

func TestProfile_Tendencies(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile.Tendencies)

	require.NoError(t, store.AddTendency(ctx, "Slices the driver under pressure"))
	require.NoError(t, store.AddTendency(ctx, "Leaves putts short"))
	require.NoError(t, store.AddTendency(ctx, " Slices the driver under pressure "))
	assert.ErrorIs(t, store.AddTendency(ctx, ""), sqlite.ErrEmptyText)

	profile, err = store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Slices the driver under pressure", "Leaves putts short"}, profile.Tendencies)
}

func TestCourseStats(t *testing.T) {
	store := openStore(t)
	course := addCourse(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveRound(ctx, course.ID, finishedRound("r1", 5, 3, 4)))
	require.NoError(t, store.SaveRound(ctx, course.ID, finishedRound("r2", 4, 4, 0)))
	require.NoError(t, store.SaveRound(ctx, course.ID, golf.Round{ID: "r3"}))

	stats, err := store.CourseStats(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RoundsPlayed)
	assert.Equal(t, 8, stats.BestScore)
	assert.InDelta(t, 10.0, stats.ScoringAverage, 1e-9)
	require.Len(t, stats.Holes, 3)
	assert.InDelta(t, 4.5, stats.Holes[0].AverageScore, 1e-9)
	assert.Equal(t, 3, stats.Holes[1].Par)
	assert.Equal(t, 1, stats.Holes[2].Samples)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caddie.db")
	ctx := context.Background()

	store, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.AddTendency(ctx, "Aims right"))
	require.NoError(t, store.Close())

	store, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aims right"}, profile.Tendencies)
}
