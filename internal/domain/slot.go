package domain

import (
	"time"
)

// SlotLayout is the wire format of every appointment timestamp.
const SlotLayout = "2006-01-02 15:04"

// ParseSlot parses a wire timestamp into a UTC time with minute precision.
func ParseSlot(s string) (time.Time, error) {
	t, err := time.ParseInLocation(SlotLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.Truncate(time.Minute), nil
}

func FormatSlot(t time.Time) string {
	return t.UTC().Format(SlotLayout)
}
