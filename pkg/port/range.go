package port

import (
	"fmt"
	"math"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// DefaultPWMRange is the range PWM values are clamped into.
var DefaultPWMRange = Range{Min: -128, Max: 128}

// PWMLimits bounds any PWM range: values travel as int16 to the board.
var PWMLimits = Range{Min: math.MinInt16, Max: math.MaxInt16}

// Clamp saturates v into the range.
func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ClampFloat truncates v toward zero then saturates it into the range.
// NaN has no integer value and is rejected.
func (r Range) ClampFloat(v float64) (int, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	v = math.Trunc(v)
	if v < float64(r.Min) {
		return r.Min, true
	}
	if v > float64(r.Max) {
		return r.Max, true
	}
	return int(v), true
}

// Contains checks v is inside the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Covers checks o lies entirely inside the range.
func (r Range) Covers(o Range) bool {
	return r.Contains(o.Min) && r.Contains(o.Max)
}

// Validate checks the range is not empty.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("invalid range [%d, %d]", r.Min, r.Max)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}
