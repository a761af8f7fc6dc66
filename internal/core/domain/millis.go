package domain

import (
	"strconv"
	"time"
)

// Millis is a point in time carried on the wire as epoch
// milliseconds. The zero value serializes as 0.
type Millis time.Time

// NowMillis is the current time as a Millis.
func NowMillis() Millis {
	return Millis(time.Now())
}

// Time converts back to a time.Time.
func (m Millis) Time() time.Time {
	return time.Time(m)
}

// IsZero reports whether the value is the zero time.
func (m Millis) IsZero() bool {
	return time.Time(m).IsZero()
}

// MarshalJSON implements json.Marshaler.
func (m Millis) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("0"), nil
	}
	return strconv.AppendInt(nil, time.Time(m).UnixMilli(), 10), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Millis) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	if ms == 0 {
		*m = Millis{}
		return nil
	}
	*m = Millis(time.UnixMilli(ms))
	return nil
}
