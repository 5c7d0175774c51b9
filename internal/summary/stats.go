package summary

import "math"

// calculateMean calculates the mean of values
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev calculates the sample standard deviation of values
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// CalculateZScore calculates the Z-score for a value given mean and standard deviation
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// IsNotable reports whether a Z-score is far enough out to call the day out
func IsNotable(zScore float64) bool {
	return math.Abs(zScore) > notableZScore
}

// severity grades how unusual a day is from its Z-score
func severity(zScore float64) string {
	absZScore := math.Abs(zScore)
	if absZScore > 2.5 {
		return "high"
	} else if absZScore > 2.0 {
		return "medium"
	}
	return "low"
}
