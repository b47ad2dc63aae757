// Package tick defines the fixed simulation step shared by the server and
// the client.
package tick

import "time"

// A simulation step number. The server's counter is authoritative.
type Tick uint32

const DEFAULT_RATE = 64

// Seconds returns the length of one tick at the given rate.
func Seconds(rate int) float32 {
	return 1 / float32(rate)
}

func Duration(rate int) time.Duration {
	return time.Second / time.Duration(rate)
}

// Newer reports whether a comes after b, tolerating counter wraparound.
func Newer(a, b Tick) bool {
	return int32(a-b) > 0
}
