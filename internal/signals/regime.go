package signals

import "math"

// RegimeScore folds return, volume acceleration and range expansion
// into a 0-100 bullishness indicator. Each contribution is clamped
// before summing so a single feature cannot saturate the score.
func RegimeScore(returnPct, volumeAccel, rangeRatio float64) int {
	score := 50.0
	score += clamp(returnPct*2000, -30, 30)
	score += clamp(volumeAccel*20, -20, 20)
	score += clamp((rangeRatio-1)*20, -20, 20)
	return int(math.Round(clamp(score, 0, 100)))
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
