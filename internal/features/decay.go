package features

import (
	"math"
	"time"
)

// RecencyWeight computes the time decay of one publication.
// Formula: weight = exp(-lambdaPerHour * ageHours), with ageHours measured
// from publishedAt to asOf.
func RecencyWeight(publishedAt *time.Time, asOf time.Time, lambdaPerHour float64) float64 {
	if publishedAt == nil || publishedAt.IsZero() {
		return MissingTimestampDecay
	}
	ageHours := asOf.Sub(*publishedAt).Hours()
	if ageHours <= 0 {
		// Published after the reference time; treat as brand new.
		return 1
	}
	return math.Exp(-lambdaPerHour * ageHours)
}
