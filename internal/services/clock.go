package services

import "time"

// Clock supplies the current time in epoch milliseconds. Injectable so tests
// can pin creation and expiration timestamps.
type Clock interface {
	NowMs() int64
}

// SystemClock reads the system clock.
type SystemClock struct{}

// NowMs returns the current epoch milliseconds.
func (SystemClock) NowMs() int64 { return time.Now().UnixMilli() }
