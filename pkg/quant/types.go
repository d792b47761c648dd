package quant

import (
	"strconv"
	"sync/atomic"
	"time"
)

// TimeStamp represents Unix Milliseconds. All events in the pipeline carry
// exchange/local time in this unit.
type TimeStamp int64

// Now returns the current wall clock as a TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMilli())
}

// Time converts a TimeStamp back to time.Time.
func (t TimeStamp) Time() time.Time {
	return time.UnixMilli(int64(t))
}

// SecondsSince returns the elapsed seconds between t and a later timestamp.
func (t TimeStamp) SecondsSince(later TimeStamp) float64 {
	return float64(later-t) / 1000.0
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParseTimeStamp converts a millisecond string to TimeStamp.
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return TimeStamp(ms), nil
}

// SpreadTicks converts a price difference into tick units.
// Returns the raw spread unchanged when tickSize is not positive.
func SpreadTicks(spread, tickSize float64) float64 {
	if tickSize <= 0 {
		return spread
	}
	return spread / tickSize
}
