package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Fixed pins NowFunc to t and returns a restore function, e.g.
//
//	defer clock.Fixed(at)()
func Fixed(t time.Time) func() {
	prev := NowFunc
	NowFunc = func() time.Time { return t }
	return func() { NowFunc = prev }
}
