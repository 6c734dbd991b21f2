package golf

// CourseStats summarises the finished rounds played on a course.
type CourseStats struct {
	RoundsPlayed int
	// ScoringAverage and BestScore are zero when no round has been finished.
	ScoringAverage float64
	BestScore      int
	Holes          []HoleStats
}

type HoleStats struct {
	HoleNumber int
	Par        int
	// AverageScore is taken over the finished rounds that recorded a
	// non-zero score on this hole.
	AverageScore float64
	Samples      int
}

// Summarize computes course stats over rounds, ignoring unfinished ones.
func Summarize(course Course, rounds []Round) CourseStats {
	stats := CourseStats{Holes: make([]HoleStats, len(course.Holes))}
	for i, hole := range course.Holes {
		stats.Holes[i] = HoleStats{HoleNumber: hole.HoleNumber, Par: hole.Par}
	}

	totals := make([]int, len(course.Holes))
	sum := 0
	for _, round := range rounds {
		if !round.Finished {
			continue
		}

		if stats.RoundsPlayed == 0 || round.TotalScore < stats.BestScore {
			stats.BestScore = round.TotalScore
		}
		stats.RoundsPlayed++
		sum += round.TotalScore

		for _, performance := range round.HoleByHole {
			i := performance.HoleNumber - 1
			if i < 0 || i >= len(stats.Holes) || performance.Score == 0 {
				continue
			}
			totals[i] += performance.Score
			stats.Holes[i].Samples++
		}
	}

	if stats.RoundsPlayed > 0 {
		stats.ScoringAverage = float64(sum) / float64(stats.RoundsPlayed)
	}
	for i := range stats.Holes {
		if stats.Holes[i].Samples > 0 {
			stats.Holes[i].AverageScore = float64(totals[i]) / float64(stats.Holes[i].Samples)
		}
	}

	return stats
}
