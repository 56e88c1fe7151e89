package mirror

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a user-supplied integer with zero fallback: input that does not
// start with an integer becomes 0, and "12abc" becomes 12. Values outside
// the 32-bit range also become 0.
type Number int

// inRange reports whether f fits the accepted range.
func inRange(f float64) bool {
	return f >= math.MinInt32 && f <= math.MaxInt32
}

// ParseNumber converts text to a Number by reading its leading integer.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		return 0
	}
	return Number(n)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		*n = 0
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			// true, false, null, objects and arrays
			*n = 0
			return nil
		}
		if math.IsNaN(f) || !inRange(f) {
			*n = 0
			return nil
		}
		*n = Number(math.Trunc(f))
	}
	return nil
}

// UnmarshalParam lets gin bind query and form values into a Number.
func (n *Number) UnmarshalParam(param string) error {
	*n = ParseNumber(param)
	return nil
}

// UnmarshalText supports flag and text decoding.
func (n *Number) UnmarshalText(text []byte) error {
	*n = ParseNumber(string(text))
	return nil
}

// Int returns n as an int.
func (n Number) Int() int {
	return int(n)
}
