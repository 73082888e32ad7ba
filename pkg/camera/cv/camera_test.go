//go:build opencv

package cv

import (
	"context"
	"errors"
	"testing"

	"vision-common/pkg/camera"
)

func TestCamera(t *testing.T) {
	c, err := Open(camera.DefaultIndex)
	if err != nil {
		t.Skipf("no capture device: %s", err)
	}

	f, err := c.Read(context.Background())
	if err != nil && !errors.Is(err, camera.ErrNoFrame) {
		t.Fatal(err)
	}
	if err == nil && f.Empty() {
		t.Fatal("frame reported without an image")
	}

	if err = c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err = c.Read(context.Background()); !errors.Is(err, camera.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
