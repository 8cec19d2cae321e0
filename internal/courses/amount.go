package courses

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a price field as sent by the dashboard form: a JSON number, a
// numeric string, an empty string or null.
type Amount struct {
	Value   float64
	Present bool
	Invalid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(v) {
			a.Invalid = true
			return nil
		}
		a.Value, a.Present = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		a.Invalid = true
		return nil
	}
	a.Value, a.Present = v, true
	return nil
}

// finite rejects the Inf and NaN spellings ParseFloat accepts.
func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Present {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// NonZero reports whether the amount carries a usable non-zero value.
func (a Amount) NonZero() bool {
	return a.Present && !a.Invalid && finite(a.Value) && a.Value != 0
}

// Of returns a present Amount. Non-finite values are marked invalid.
func Of(v float64) Amount {
	return Amount{Value: v, Present: true, Invalid: !finite(v)}
}
