package viewer

import (
	"context"
	"time"

	"vision-common/pkg/camera"
	"vision-common/pkg/decoder"
)

const DefaultQueueSize = 4

type EventKind uint8

const (
	EventFrame EventKind = iota
	EventStop
)

// Event is handed from the capture goroutine to the decoding loop in FIFO
// order. The last event of every run is EventStop.
type Event struct {
	Kind  EventKind
	Frame camera.Frame
	// Iter is the loop iteration that read Frame.
	Iter int
}

type QueueOptions struct {
	// Size bounds the hand-off queue; the producer blocks while it is full.
	Size int
	// Drain keeps the producer running until its own policy expires, even
	// after a payload was found. Frames queued after the first payload are
	// discarded without decoding. By default the first payload stops the
	// producer.
	Drain bool
}

// FindCodeQueued is FindCode with camera reads and decoding split across
// two goroutines joined by a bounded queue. The producer applies policy on
// its own; the call returns once the queue has been drained and the
// producer has exited.
func (v *Viewer) FindCodeQueued(ctx context.Context, policy Policy, opts QueueOptions, symbols ...decoder.Symbol) (Payload, error) {
	if err := v.checkPolicy(policy); err != nil {
		return Payload{}, err
	}
	if opts.Size <= 0 {
		opts.Size = DefaultQueueSize
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	b := policy.start(time.Now())
	prodCtx, stopProducer := v.loopContext(ctx, policy, b)
	defer stopProducer()

	events := make(chan Event, opts.Size)
	go v.produce(prodCtx, b, events)

	var (
		payload   Payload
		found     bool
		discarded int
	)
	for ev := range events {
		if ev.Kind == EventStop {
			break
		}
		if found {
			discarded++
			continue
		}

		a := v.Scan(ev.Frame, symbols...)
		a.Frame = ev.Iter
		v.observe(a)
		if a.Kind == Decoded {
			payload, found = a.Payload, true
			if !opts.Drain {
				stopProducer()
			}
		}
	}

	if discarded > 0 {
		v.logger.Debugf("discarded %d queued frames after the first payload", discarded)
	}
	if found {
		v.logger.Infof("payload: %s", payload.Text)
		return payload, nil
	}
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}
	v.logger.Infof("no code found within %s", policy)
	return Payload{}, ErrNotFound
}

// produce reads frames into events until the budget expires or ctx is done,
// then sends EventStop. The consumer always reads up to EventStop, so the
// final send cannot block forever.
func (v *Viewer) produce(ctx context.Context, b *budget, events chan<- Event) {
	defer close(events)

	for iter := 1; ; iter++ {
		if iter > 1 && !b.expired(time.Now()) {
			v.pause(ctx)
		}
		if ctx.Err() != nil || b.expired(time.Now()) {
			break
		}
		b.consume()

		frame, err := v.readFrame(ctx)
		if err != nil {
			v.observe(Attempt{Kind: NoFrame, Frame: iter, Cause: err})
			continue
		}

		select {
		case events <- Event{Kind: EventFrame, Frame: frame, Iter: iter}:
		case <-ctx.Done():
		}
	}

	events <- Event{Kind: EventStop}
}
