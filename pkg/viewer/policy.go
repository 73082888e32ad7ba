package viewer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCombination = errors.New("invalid timeout combination")
	ErrNegativeTimeout    = errors.New("timeout cannot be negative")
)

type policyKind uint8

const (
	kindNone policyKind = iota
	kindSeconds
	kindFrames
	kindBoth
)

// Policy decides when a capture loop gives up: after a wall-clock
// timeout, after a number of frames, or at whichever of both comes first.
// The zero value is not a valid policy.
type Policy struct {
	kind    policyKind
	timeout time.Duration
	frames  int
}

// Seconds bounds the loop by elapsed time. A zero timeout tries nothing.
func Seconds(timeout time.Duration) (Policy, error) {
	if timeout < 0 {
		return Policy{}, fmt.Errorf("%w: %s", ErrNegativeTimeout, timeout)
	}
	return Policy{kind: kindSeconds, timeout: timeout}, nil
}

// Frames bounds the loop by iterations. Every iteration counts, whether or
// not the camera produced a frame. Zero frames tries nothing.
func Frames(n int) (Policy, error) {
	if n < 0 {
		return Policy{}, fmt.Errorf("%w: %d frames", ErrNegativeTimeout, n)
	}
	return Policy{kind: kindFrames, frames: n}, nil
}

// Both stops as soon as either bound is reached.
func Both(timeout time.Duration, n int) (Policy, error) {
	if timeout < 0 || n < 0 {
		return Policy{}, fmt.Errorf("%w: %s, %d frames", ErrNegativeTimeout, timeout, n)
	}
	return Policy{kind: kindBoth, timeout: timeout, frames: n}, nil
}

// NewPolicy builds a policy from optional whole-second and frame bounds.
// Negative values are checked first, then the combination: at least one
// bound is required, and both only when allowCombined is set.
func NewPolicy(timeoutSec, timeoutFrames *int, allowCombined bool) (Policy, error) {
	if (timeoutSec != nil && *timeoutSec < 0) || (timeoutFrames != nil && *timeoutFrames < 0) {
		return Policy{}, ErrNegativeTimeout
	}

	switch {
	case timeoutSec == nil && timeoutFrames == nil:
		return Policy{}, fmt.Errorf("%w: one timeout must be set", ErrInvalidCombination)
	case timeoutSec != nil && timeoutFrames != nil:
		if !allowCombined {
			return Policy{}, fmt.Errorf("%w: cannot set both seconds and frames", ErrInvalidCombination)
		}
		return Both(time.Duration(*timeoutSec)*time.Second, *timeoutFrames)
	case timeoutSec != nil:
		return Seconds(time.Duration(*timeoutSec) * time.Second)
	default:
		return Frames(*timeoutFrames)
	}
}

func (p Policy) Valid() bool { return p.kind != kindNone }

// Timeout returns the wall-clock bound, if any.
func (p Policy) Timeout() (time.Duration, bool) {
	return p.timeout, p.hasSeconds()
}

// FrameLimit returns the frame bound, if any.
func (p Policy) FrameLimit() (int, bool) {
	return p.frames, p.hasFrames()
}

func (p Policy) Combined() bool { return p.kind == kindBoth }

func (p Policy) hasSeconds() bool { return p.kind == kindSeconds || p.kind == kindBoth }

func (p Policy) hasFrames() bool { return p.kind == kindFrames || p.kind == kindBoth }

func (p Policy) String() string {
	switch p.kind {
	case kindSeconds:
		return fmt.Sprintf("seconds(%s)", p.timeout)
	case kindFrames:
		return fmt.Sprintf("frames(%d)", p.frames)
	case kindBoth:
		return fmt.Sprintf("both(%s, %d)", p.timeout, p.frames)
	}
	return "invalid"
}

// budget tracks one run of a policy.
type budget struct {
	policy   Policy
	deadline time.Time
	used     int
}

func (p Policy) start(now time.Time) *budget {
	b := &budget{policy: p}
	if p.hasSeconds() {
		b.deadline = now.Add(p.timeout)
	}
	return b
}

// expired is evaluated once per iteration before any I/O.
func (b *budget) expired(now time.Time) bool {
	if b.policy.hasSeconds() && !now.Before(b.deadline) {
		return true
	}
	if b.policy.hasFrames() && b.used >= b.policy.frames {
		return true
	}
	return false
}

// consume charges one iteration against the frame bound.
func (b *budget) consume() {
	if b.policy.hasFrames() {
		b.used++
	}
}
