package video

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/icza/mjpeg"
	"go.uber.org/zap"

	"vision-common/pkg/camera"
	imageutil "vision-common/pkg/utils/image"
)

const (
	DefaultFPS     = 15
	DefaultQuality = 85
)

type Builder struct {
	width  int
	height int
	fps    int

	cnt int
	aw  mjpeg.AviWriter
}

func NewBuilder(path string, width, height, fps int) (*Builder, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, err
	}

	return &Builder{
		width:  width,
		height: height,
		fps:    fps,
		aw:     aw,
	}, nil
}

func (b *Builder) Add(frame []byte) error {
	err := b.aw.AddFrame(frame)
	if err != nil {
		return err
	}
	b.cnt++

	return nil
}

func (b *Builder) Close() error {
	return b.aw.Close()
}

func (b *Builder) GetCnt() int {
	return b.cnt
}

// Recorder is a camera that writes every frame it hands out to an MJPEG
// AVI file. The file is created on the first frame, sized to that frame.
type Recorder struct {
	cam     camera.Camera
	path    string
	fps     int
	quality int
	logger  *zap.SugaredLogger

	lock    sync.Mutex
	builder *Builder
	err     error
}

func NewRecorder(cam camera.Camera, path string, fps int, logger *zap.SugaredLogger) *Recorder {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{cam: cam, path: path, fps: fps, quality: DefaultQuality, logger: logger}
}

// Read passes the frame through. A recording failure is logged once and
// disables recording; it never fails the read.
func (r *Recorder) Read(ctx context.Context) (camera.Frame, error) {
	frame, err := r.cam.Read(ctx)
	if err != nil || frame.Empty() {
		return frame, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return frame, nil
	}
	if err = r.add(frame); err != nil {
		r.err = err
		r.logger.Warnf("recording to %s stopped: %s", r.path, err)
	}
	return frame, nil
}

func (r *Recorder) add(frame camera.Frame) error {
	if r.builder == nil {
		b := frame.Image.Bounds()
		builder, err := NewBuilder(r.path, b.Dx(), b.Dy(), r.fps)
		if err != nil {
			return err
		}
		r.builder = builder
	}

	data := frame.JPEG
	if data == nil {
		var err error
		if data, err = imageutil.EncodeJPEGBytes(frame.Image, r.quality); err != nil {
			return err
		}
	}
	return r.builder.Add(data)
}

// Frames returns how many frames were recorded so far.
func (r *Recorder) Frames() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.builder == nil {
		return 0
	}
	return r.builder.GetCnt()
}

// Close finalizes the AVI file and closes the wrapped camera.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	var errs []error
	if r.builder != nil {
		if err := r.builder.Close(); err != nil {
			errs = append(errs, err)
		} else if info, err := os.Stat(r.path); err == nil {
			r.logger.Infof("recorded %d frames to %s (%s)", r.builder.GetCnt(), r.path, humanize.Bytes(uint64(info.Size())))
		}
		r.builder = nil
	}
	if err := r.cam.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
