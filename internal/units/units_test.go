package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		unit     string
		want     float64
	}{
		{"10 m/s to mph", 10, MPH, 22.3694},
		{"10 m/s to kph", 10, KPH, 36},
		{"10 m/s to mps", 10, MPS, 10},
		{"unknown unit stays m/s", 10, "knots", 10},
		{"urban 13.89 m/s to kph", 13.89, KPH, 50.004},
		{"walking 1.4 m/s to mph", 1.4, MPH, 3.13172},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertSpeed(tt.speedMPS, tt.unit); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("ConvertSpeed(%g, %s) = %g, want %g", tt.speedMPS, tt.unit, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false", u)
		}
	}
	for _, u := range []string{"", "kmph", "MPS"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true", u)
		}
	}
	if got, want := ValidUnitsString(), "mps, kph, mph"; got != want {
		t.Errorf("ValidUnitsString() = %q, want %q", got, want)
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{MPS: "m/s", KPH: "km/h", MPH: "mph", "": "m/s"}
	for unit, want := range tests {
		if got := Label(unit); got != want {
			t.Errorf("Label(%q) = %q, want %q", unit, got, want)
		}
	}
}
