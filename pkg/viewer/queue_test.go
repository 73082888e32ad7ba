package viewer

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"vision-common/pkg/camera"
	"vision-common/pkg/decoder"
)

// numbered serves frames whose first pixel carries the read number.
func numbered() *camera.Mock {
	return &camera.Mock{
		ReadFunc: func(_ context.Context, n int) (camera.Frame, error) {
			img := image.NewGray(image.Rect(0, 0, 4, 4))
			img.Pix[0] = byte(n)
			return camera.Frame{Image: img, Seq: uint64(n)}, nil
		},
	}
}

func TestQueuedFirstPayloadStopsProducer(t *testing.T) {
	cam := camera.Serving(litImage())
	dec := decoder.Always("queued")
	v := newTestViewer(cam, dec)

	p, err := v.FindCodeQueued(context.Background(), mustFrames(t, 10), QueueOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Text != "queued" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if dec.Calls() != 1 {
		t.Fatalf("decode calls %d, want 1", dec.Calls())
	}
	if cam.Reads() > 10 {
		t.Fatalf("producer overran its budget: %d reads", cam.Reads())
	}
}

func TestQueuedDrainRunsProducerToBudget(t *testing.T) {
	cam := camera.Serving(litImage())
	dec := decoder.Always("queued")
	v := newTestViewer(cam, dec)

	p, err := v.FindCodeQueued(context.Background(), mustFrames(t, 10), QueueOptions{Size: 2, Drain: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.Text != "queued" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if cam.Reads() != 10 {
		t.Fatalf("reads %d, want the full budget of 10", cam.Reads())
	}
	if dec.Calls() != 1 {
		t.Fatalf("decode calls %d; frames after the first payload must be discarded", dec.Calls())
	}
}

func TestQueuedNotFound(t *testing.T) {
	cam := camera.Serving(litImage())
	dec := &decoder.Mock{}
	v := newTestViewer(cam, dec)

	if _, err := v.FindCodeQueued(context.Background(), mustFrames(t, 5), QueueOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if cam.Reads() != 5 || dec.Calls() != 5 {
		t.Fatalf("reads %d, decodes %d; want 5 and 5", cam.Reads(), dec.Calls())
	}
}

func TestQueuedFIFO(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []byte
	)
	dec := &decoder.Mock{
		DecodeFunc: func(img image.Image, _ []decoder.Symbol) ([]decoder.Detection, error) {
			mu.Lock()
			seen = append(seen, img.(*image.Gray).Pix[0])
			mu.Unlock()
			return nil, nil
		},
	}
	v := newTestViewer(numbered(), dec)

	if _, err := v.FindCodeQueued(context.Background(), mustFrames(t, 8), QueueOptions{Size: 3}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(seen) != 8 {
		t.Fatalf("decoded %d frames, want 8", len(seen))
	}
	for i, n := range seen {
		if int(n) != i+1 {
			t.Fatalf("frames decoded out of order: %v", seen)
		}
	}
}

func TestQueuedZeroFramesAndDeadCamera(t *testing.T) {
	cam := camera.Serving(litImage())
	v := newTestViewer(cam, decoder.Always("x"))
	if _, err := v.FindCodeQueued(context.Background(), mustFrames(t, 0), QueueOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if cam.Reads() != 0 {
		t.Fatalf("zero budget read %d frames", cam.Reads())
	}

	var noFrames int
	dead := newTestViewer(camera.Dead(), decoder.Always("x"),
		WithObserver(func(a Attempt) {
			if a.Kind == NoFrame {
				noFrames++
			}
		}),
	)
	p, _ := Seconds(40 * time.Millisecond)
	start := time.Now()
	if _, err := dead.FindCodeQueued(context.Background(), p, QueueOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatal("queued seconds policy returned early")
	}
	if noFrames == 0 {
		t.Fatal("observer saw no failed reads")
	}
}

func TestQueuedCallerCancel(t *testing.T) {
	cam := &camera.Mock{
		ReadFunc: func(ctx context.Context, _ int) (camera.Frame, error) {
			<-ctx.Done()
			return camera.Frame{}, ctx.Err()
		},
	}
	v := newTestViewer(cam, decoder.Always("x"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p, _ := Frames(1000)
	if _, err := v.FindCodeQueued(ctx, p, QueueOptions{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestQueuedInvalidPolicy(t *testing.T) {
	cam := camera.Serving(litImage())
	v := newTestViewer(cam, decoder.Always("x"), WithCombinedTimeouts(false))
	both, _ := Both(time.Second, 3)
	for _, p := range []Policy{{}, both} {
		if _, err := v.FindCodeQueued(context.Background(), p, QueueOptions{}); !errors.Is(err, ErrInvalidCombination) {
			t.Fatalf("%s: expected ErrInvalidCombination, got %v", p, err)
		}
	}
	if cam.Reads() != 0 {
		t.Fatal("invalid policy touched the camera")
	}
}
