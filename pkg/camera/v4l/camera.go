//go:build linux

// Package v4l reads frames from a V4L2 device through go4vl.
package v4l

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"vision-common/pkg/camera"
	imageutil "vision-common/pkg/utils/image"
	"vision-common/pkg/utils/rgb"
)

const (
	DefaultWidth      = 1280
	DefaultHeight     = 720
	DefaultFPS        = 15
	DefaultBufferSize = 2
)

var (
	StartedErr            = errors.New("already started")
	ErrUnsupportedPixFmt  = errors.New("unsupported pixel format")
	DefaultPixelFormat    = v4l2.PixelFmtJPEG
	supportedPixelFormats = map[v4l2.FourCCType]string{
		v4l2.PixelFmtJPEG:  "jpeg",
		v4l2.PixelFmtMJPEG: "mjpeg",
		v4l2.PixelFmtRGB24: "rgb24",
	}
)

type Options struct {
	Width       int
	Height      int
	FPS         int
	BufferSize  int
	PixelFormat v4l2.FourCCType
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.PixelFormat == 0 {
		o.PixelFormat = DefaultPixelFormat
	}
	return o
}

// ParsePixelFormat maps "jpeg", "mjpeg" or "rgb24" to a V4L2 fourcc.
func ParsePixelFormat(name string) (v4l2.FourCCType, error) {
	for code, n := range supportedPixelFormats {
		if n == name {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedPixFmt, name)
}

// DeviceName maps a device index to its /dev node.
func DeviceName(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// Camera is a started V4L2 stream. Read returns the most recent frame the
// driver has delivered and drops older buffered ones.
type Camera struct {
	devName string
	opts    Options

	lock   sync.Mutex
	cancel context.CancelFunc
	camera *device.Device
	frames <-chan []byte
	format v4l2.PixFormat
	seq    uint64
}

// Open opens and starts devName. The stream stops when ctx is done or
// Close is called.
func Open(ctx context.Context, devName string, opts Options) (*Camera, error) {
	c := &Camera{devName: devName, opts: opts.withDefaults()}
	if err := c.start(ctx); err != nil {
		return nil, fmt.Errorf("open %s: %w", devName, err)
	}
	return c, nil
}

// Opener adapts Open to camera.Opener.
func Opener(ctx context.Context, opts Options) camera.Opener {
	return func(index int) (camera.Camera, error) {
		return Open(ctx, DeviceName(index), opts)
	}
}

func (c *Camera) start(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.camera != nil {
		return StartedErr
	}
	if _, ok := supportedPixelFormats[c.opts.PixelFormat]; !ok {
		return ErrUnsupportedPixFmt
	}

	dev, err := device.Open(
		c.devName,
		device.WithBufferSize(uint32(c.opts.BufferSize)),
		device.WithFPS(uint32(c.opts.FPS)),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: c.opts.PixelFormat,
			Width:       uint32(c.opts.Width),
			Height:      uint32(c.opts.Height),
			Field:       v4l2.FieldNone,
		}),
	)
	if err != nil {
		return err
	}

	format, err := v4l2.GetPixFormat(dev.Fd())
	if err != nil {
		_ = dev.Close()
		return err
	}

	newCtx, cancel := context.WithCancel(ctx)
	if err = dev.Start(newCtx); err != nil {
		cancel()
		_ = dev.Close()
		return err
	}

	c.camera = dev
	c.cancel = cancel
	c.format = format
	c.frames = dev.GetOutput()

	return nil
}

func (c *Camera) Read(ctx context.Context) (camera.Frame, error) {
	c.lock.Lock()
	frames := c.frames
	c.lock.Unlock()
	if frames == nil {
		return camera.Frame{}, camera.ErrClosed
	}

	var data []byte
	select {
	case f, ok := <-frames:
		if !ok {
			return camera.Frame{}, camera.ErrClosed
		}
		data = f
	case <-ctx.Done():
		return camera.Frame{}, ctx.Err()
	}
	// keep only the newest buffered frame
	for drained := false; !drained; {
		select {
		case f, ok := <-frames:
			if ok {
				data = f
			} else {
				drained = true
			}
		default:
			drained = true
		}
	}
	if len(data) == 0 {
		return camera.Frame{}, camera.ErrNoFrame
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	c.lock.Lock()
	c.seq++
	seq := c.seq
	c.lock.Unlock()

	return decodeFrame(buf, c.format, seq)
}

func decodeFrame(buf []byte, format v4l2.PixFormat, seq uint64) (camera.Frame, error) {
	frame := camera.Frame{Seq: seq, At: time.Now()}
	switch format.PixelFormat {
	case v4l2.PixelFmtJPEG, v4l2.PixelFmtMJPEG:
		img, err := imageutil.DecodeJPEG(buf)
		if err != nil {
			return camera.Frame{}, fmt.Errorf("%w: %s", camera.ErrNoFrame, err)
		}
		frame.Image = img
		frame.JPEG = buf
	case v4l2.PixelFmtRGB24:
		w, h := int(format.Width), int(format.Height)
		if h == 0 || len(buf) < w*h*3 {
			return camera.Frame{}, camera.ErrNoFrame
		}
		frame.Image = rgb.NewRGB(buf, w, h)
	default:
		return camera.Frame{}, ErrUnsupportedPixFmt
	}

	return frame, nil
}

func (c *Camera) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.cancel != nil {
		// let the streaming goroutine observe ctx.Done and stop the device
		// before Close releases the buffers
		c.cancel()
		time.Sleep(100 * time.Millisecond)
		c.cancel = nil
	}
	c.frames = nil
	if c.camera != nil {
		err := c.camera.Close()
		c.camera = nil
		return err
	}
	return nil
}
