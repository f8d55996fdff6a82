package recorder

import (
	"math"
	"time"
)

// Timing is the processing time of one sampled frame.
type Timing struct {
	At       time.Time
	Duration time.Duration
}

type RateStats struct {
	Frames int           `json:"frames"`
	Mean   time.Duration `json:"mean"`
	// StdDev is the sample standard deviation of the per-frame durations.
	StdDev time.Duration `json:"stddev"`
	// FPS is the achieved rate between the first and the last frame.
	FPS float64 `json:"fps"`
}

func ComputeRateStats(timings []Timing) RateStats {
	n := len(timings)
	if n == 0 {
		return RateStats{}
	}

	var sum float64
	for _, t := range timings {
		sum += float64(t.Duration)
	}
	mean := sum / float64(n)

	stats := RateStats{Frames: n, Mean: time.Duration(mean)}
	if n < 2 {
		return stats
	}

	var sumSquares float64
	for _, t := range timings {
		diff := float64(t.Duration) - mean
		sumSquares += diff * diff
	}
	stats.StdDev = time.Duration(math.Sqrt(sumSquares / float64(n-1)))

	if span := timings[n-1].At.Sub(timings[0].At); span > 0 {
		stats.FPS = float64(n-1) / span.Seconds()
	}

	return stats
}
