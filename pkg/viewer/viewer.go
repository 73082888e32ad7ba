// Package viewer captures frames from a camera until a barcode or QR code
// is decoded or a timeout policy runs out.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vision-common/pkg/camera"
	"vision-common/pkg/decoder"
)

const DefaultPollInterval = 10 * time.Millisecond

var ErrNotFound = errors.New("no code found")

// busyWaitAdvisory is process-wide so the warning is logged once per
// process, not once per call.
var busyWaitAdvisory sync.Once

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// Payload is the text of the first symbol found.
type Payload struct {
	Text   string         `json:"text"`
	Symbol decoder.Symbol `json:"symbol"`
}

type Option func(*Viewer)

func WithLogger(l Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithPollInterval sets the pause between loop iterations. Zero
// polls the camera back to back.
func WithPollInterval(d time.Duration) Option {
	return func(v *Viewer) {
		if d >= 0 {
			v.pollInterval = d
		}
	}
}

// WithReadTimeout bounds every camera read. Zero leaves reads bounded only
// by the policy deadline, if any.
func WithReadTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		if d >= 0 {
			v.readTimeout = d
		}
	}
}

// WithObserver receives every attempt. In queued mode it is called from
// more than one goroutine, but never concurrently.
func WithObserver(fn func(Attempt)) Option {
	return func(v *Viewer) { v.observer = fn }
}

// WithCombinedTimeouts controls whether a policy may carry both a seconds
// and a frame bound. Allowed by default.
func WithCombinedTimeouts(allow bool) Option {
	return func(v *Viewer) { v.allowCombined = allow }
}

// Viewer owns a camera for its lifetime. Captures on one Viewer are
// serialized.
type Viewer struct {
	cam camera.Camera
	dec decoder.Decoder

	logger        Logger
	pollInterval  time.Duration
	readTimeout   time.Duration
	observer      func(Attempt)
	allowCombined bool

	lock    sync.Mutex
	obsLock sync.Mutex
}

func New(cam camera.Camera, dec decoder.Decoder, opts ...Option) *Viewer {
	v := &Viewer{
		cam:           cam,
		dec:           dec,
		logger:        zap.NewNop().Sugar(),
		pollInterval:  DefaultPollInterval,
		allowCombined: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open opens the camera at index and wraps it in a Viewer.
func Open(open camera.Opener, index int, dec decoder.Decoder, opts ...Option) (*Viewer, error) {
	cam, err := open(index)
	if err != nil {
		return nil, err
	}
	return New(cam, dec, opts...), nil
}

func (v *Viewer) Close() error {
	return v.cam.Close()
}

// CaptureCode is FindCode with optional whole-second and frame bounds and
// the text of the payload as result.
func (v *Viewer) CaptureCode(ctx context.Context, timeoutSec, timeoutFrames *int, symbols ...decoder.Symbol) (string, error) {
	policy, err := NewPolicy(timeoutSec, timeoutFrames, v.allowCombined)
	if err != nil {
		return "", err
	}
	p, err := v.FindCode(ctx, policy, symbols...)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

// FindCode reads and decodes frames until a payload is found or the policy
// expires, in which case it returns ErrNotFound. Decode failures and
// missing frames never end the loop.
func (v *Viewer) FindCode(ctx context.Context, policy Policy, symbols ...decoder.Symbol) (Payload, error) {
	if err := v.checkPolicy(policy); err != nil {
		return Payload{}, err
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	b := policy.start(time.Now())
	loopCtx, cancel := v.loopContext(ctx, policy, b)
	defer cancel()

	for iter := 1; ; iter++ {
		if iter > 1 && !b.expired(time.Now()) {
			v.pause(loopCtx)
		}
		if err := ctx.Err(); err != nil {
			return Payload{}, err
		}
		if b.expired(time.Now()) {
			break
		}
		b.consume()

		a := v.read(loopCtx, iter, symbols)
		v.observe(a)
		if a.Kind == Decoded {
			v.logger.Infof("payload: %s", a.Payload.Text)
			return a.Payload, nil
		}
	}

	v.logger.Infof("no code found within %s", policy)
	return Payload{}, ErrNotFound
}

// CaptureFrame reads a single frame.
func (v *Viewer) CaptureFrame(ctx context.Context) (camera.Frame, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	ctx, cancel := v.readContext(ctx)
	defer cancel()
	frame, err := v.cam.Read(ctx)
	if err != nil {
		v.logger.Warnf("frame capture failed: %s", err)
		return camera.Frame{}, err
	}
	return frame, nil
}

// Scan decodes one frame. Empty and all-black frames count as no frame.
func (v *Viewer) Scan(frame camera.Frame, symbols ...decoder.Symbol) (a Attempt) {
	if frame.Empty() || frame.Blank() {
		return Attempt{Kind: NoFrame, Cause: camera.ErrNoFrame}
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Errorf("decoder panic: %v", r)
			a = Attempt{Kind: TransientFailure, Cause: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	dets, err := v.dec.Decode(frame.Image, symbols)
	if err != nil {
		v.logger.Warnf("an error occurred during code decoding: %s", err)
		return Attempt{Kind: TransientFailure, Cause: err}
	}
	if len(dets) == 0 {
		v.logger.Debugf("no code detected in the frame")
		return Attempt{Kind: NoCode}
	}

	p := Payload{Text: string(dets[0].Data), Symbol: dets[0].Symbol}
	v.logger.Debugf("code detected and decoded: %s (%s)", p.Text, p.Symbol)
	return Attempt{Kind: Decoded, Payload: p}
}

func (v *Viewer) checkPolicy(policy Policy) error {
	if !policy.Valid() {
		return fmt.Errorf("%w: one timeout must be set", ErrInvalidCombination)
	}
	if policy.Combined() && !v.allowCombined {
		return fmt.Errorf("%w: cannot set both seconds and frames", ErrInvalidCombination)
	}
	return nil
}

// loopContext bounds camera reads by the policy deadline so a hung read
// cannot outlive the timeout on backends that honour ctx.
func (v *Viewer) loopContext(ctx context.Context, policy Policy, b *budget) (context.Context, context.CancelFunc) {
	if !policy.hasSeconds() {
		return context.WithCancel(ctx)
	}
	busyWaitAdvisory.Do(func() {
		v.logger.Warnf("using a polling loop for wall-clock timeouts can be resource-intensive (poll interval %s)", v.pollInterval)
	})
	return context.WithDeadline(ctx, b.deadline)
}

func (v *Viewer) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.readTimeout > 0 {
		return context.WithTimeout(ctx, v.readTimeout)
	}
	return ctx, func() {}
}

func (v *Viewer) read(ctx context.Context, iter int, symbols []decoder.Symbol) Attempt {
	frame, err := v.readFrame(ctx)
	if err != nil {
		return Attempt{Kind: NoFrame, Frame: iter, Cause: err}
	}
	a := v.Scan(frame, symbols...)
	a.Frame = iter
	return a
}

func (v *Viewer) readFrame(ctx context.Context) (camera.Frame, error) {
	ctx, cancel := v.readContext(ctx)
	defer cancel()
	frame, err := v.cam.Read(ctx)
	if err != nil {
		v.logger.Debugf("frame capture failed: %s", err)
	}
	return frame, err
}

func (v *Viewer) pause(ctx context.Context) {
	if v.pollInterval <= 0 {
		return
	}
	t := time.NewTimer(v.pollInterval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (v *Viewer) observe(a Attempt) {
	if v.observer == nil {
		return
	}
	v.obsLock.Lock()
	defer v.obsLock.Unlock()
	v.observer(a)
}

// Int returns a pointer to n, for the optional bounds of CaptureCode.
func Int(n int) *int {
	return &n
}
