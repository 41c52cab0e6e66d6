package utils

import (
	"fmt"
	"time"
)

const isoSeconds = "2006-01-02T15:04:05"

// ISOTimestamp renders t in UTC as 2025-11-01T12:30:05.123456Z. The fraction is
// microseconds and is left out entirely when zero.
func ISOTimestamp(t time.Time) string {
	t = t.UTC()
	out := t.Format(isoSeconds)
	if micros := t.Nanosecond() / 1000; micros != 0 {
		out += fmt.Sprintf(".%06d", micros)
	}
	return out + "Z"
}
