package submission

import "math"

// LetterGrade maps a percentage onto A/B/C/D/F.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// Percentage applies the flat late penalty to points/maxPoints, floored at 0 and rounded to 2 places.
func Percentage(points, maxPoints float64, latePenalty int) float64 {
	if maxPoints <= 0 {
		return 0
	}
	pct := points/maxPoints*100 - float64(latePenalty)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}
