// Package units converts ego and object speeds for report labels.
package units

import "strings"

// Speed units.
const (
	MPS = "mps"
	KPH = "kph"
	MPH = "mph"
)

// ValidUnits lists the accepted unit names.
var ValidUnits = []string{MPS, KPH, MPH}

// IsValid reports whether unit is a known speed unit.
func IsValid(unit string) bool {
	for _, u := range ValidUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// ValidUnitsString returns the unit names for error messages.
func ValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed in m/s to unit. Unknown units leave the
// value in m/s.
func ConvertSpeed(speedMPS float64, unit string) float64 {
	switch unit {
	case KPH:
		return speedMPS * 3.6
	case MPH:
		return speedMPS * 2.2369362920544
	default:
		return speedMPS
	}
}

// Label returns the axis label for unit.
func Label(unit string) string {
	switch unit {
	case KPH:
		return "km/h"
	case MPH:
		return "mph"
	default:
		return "m/s"
	}
}
