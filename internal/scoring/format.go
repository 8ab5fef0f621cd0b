package scoring

import "fmt"

func recPlural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf(singular, n)
	}
	return fmt.Sprintf(plural, n)
}

// Grade buckets a trust score for display.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "trusted"
	case score >= 70:
		return "low risk"
	case score >= 40:
		return "medium risk"
	default:
		return "high risk"
	}
}
