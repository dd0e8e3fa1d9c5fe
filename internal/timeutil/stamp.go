package timeutil

import (
	"math"
	"time"
)

// MicrosToSeconds converts an integer microsecond dataset timestamp to
// floating-point seconds.
func MicrosToSeconds(us int64) float64 {
	return float64(us) / 1e6
}

// SecondsToDuration converts floating-point seconds to a time.Duration.
func SecondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
