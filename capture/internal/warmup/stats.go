package warmup

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold: a stream is stable if the stddev of the
	// instantaneous FPS is below 15% of the mean FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold: and if the mean jitter is below 20% of the
	// expected inter-frame interval.
	jitterStabilityThreshold = 0.20
)

// Stats contains FPS statistics over a series of frame arrivals
type Stats struct {
	FramesReceived int           // Number of frames observed
	Duration       time.Duration // Observation window
	FPSMean        float64       // Frames / window
	FPSStdDev      float64       // Standard deviation of instantaneous FPS
	FPSMin         float64       // Minimum instantaneous FPS
	FPSMax         float64       // Maximum instantaneous FPS
	IsStable       bool          // FPS and jitter within thresholds
	JitterMean     float64       // Mean |interval - expected interval| (seconds)
	JitterMax      float64       // Maximum jitter observed (seconds)
}

// SpanWindow returns the observation window covered by n arrival times:
// the first-to-last span plus one mean interval.
func SpanWindow(frameTimes []time.Time) time.Duration {
	n := len(frameTimes)
	if n < 2 {
		return 0
	}
	span := frameTimes[n-1].Sub(frameTimes[0])
	return span + span/time.Duration(n-1)
}

// CalculateFPSStats calculates FPS statistics from frame timestamps
//
// Algorithm:
//  1. Mean FPS = frames / window
//  2. Instantaneous FPS = 1 / interval for each positive interval
//  3. Min, max and stddev of the instantaneous FPS (around the mean FPS)
//  4. Jitter = |interval - 1/mean| per interval
//  5. Stable = stddev < 15% of mean AND mean jitter < 20% of 1/mean
func CalculateFPSStats(frameTimes []time.Time, window time.Duration) Stats {
	n := len(frameTimes)
	stats := Stats{FramesReceived: n, Duration: window}
	if n == 0 || window <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / window.Seconds()

	var instant []float64
	for i := 1; i < n; i++ {
		if interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds(); interval > 0 {
			instant = append(instant, 1.0/interval)
		}
	}
	if len(instant) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = instant[0], instant[0]
	var sumSquares float64
	for _, fps := range instant {
		stats.FPSMin = math.Min(stats.FPSMin, fps)
		stats.FPSMax = math.Max(stats.FPSMax, fps)
		d := fps - stats.FPSMean
		sumSquares += d * d
	}
	stats.FPSStdDev = math.Sqrt(sumSquares / float64(len(instant)))

	expected := 1.0 / stats.FPSMean
	var jitterSum float64
	for i := 1; i < n; i++ {
		j := math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expected)
		jitterSum += j
		stats.JitterMax = math.Max(stats.JitterMax, j)
	}
	stats.JitterMean = jitterSum / float64(n-1)

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*fpsStabilityThreshold &&
		stats.JitterMean < expected*jitterStabilityThreshold

	return stats
}
