package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zapcore"

	"vision-common/pkg/decoder"
)

const (
	BackendV4L2   = "v4l2"
	BackendOpenCV = "opencv"
	BackendImage  = "image"

	DefaultTimeoutSec     = 10
	DefaultPollIntervalMs = 10
	DefaultQueueSize      = 4
)

var pixelFormats = map[string]bool{"jpeg": true, "mjpeg": true, "rgb24": true}

type Config struct {
	Camera   Camera `json:"camera"`
	Scan     Scan   `json:"scan"`
	Record   Record `json:"record"`
	LogLevel string `json:"logLevel"`
}

type Camera struct {
	// Backend is one of v4l2, opencv or image.
	Backend string `json:"backend"`
	Index   int    `json:"index"`
	// Device overrides the /dev/videoN path derived from Index (v4l2 only).
	Device      string `json:"device,omitempty"`
	Image       string `json:"image,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	PixelFormat string `json:"pixelFormat"`
}

type Scan struct {
	TimeoutSec     *int     `json:"timeoutSec,omitempty"`
	TimeoutFrames  *int     `json:"timeoutFrames,omitempty"`
	Symbols        []string `json:"symbols,omitempty"`
	PollIntervalMs int      `json:"pollIntervalMs"`
	ReadTimeoutMs  int      `json:"readTimeoutMs"`
	AllowCombined  bool     `json:"allowCombined"`
	Queue          bool     `json:"queue"`
	QueueSize      int      `json:"queueSize"`
	Drain          bool     `json:"drain"`
}

type Record struct {
	Path string `json:"path,omitempty"`
	FPS  int    `json:"fps"`
}

func Default() Config {
	return Config{
		Camera: Camera{
			Backend:     BackendV4L2,
			Width:       1280,
			Height:      720,
			FPS:         15,
			PixelFormat: "jpeg",
		},
		Scan: Scan{
			PollIntervalMs: DefaultPollIntervalMs,
			AllowCombined:  true,
			QueueSize:      DefaultQueueSize,
		},
		Record:   Record{FPS: 15},
		LogLevel: "info",
	}
}

// Load reads a JSON file on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err = json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	switch c.Camera.Backend {
	case BackendV4L2, BackendOpenCV:
	case BackendImage:
		if c.Camera.Image == "" {
			errs = append(errs, errors.New("camera.image is required for the image backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown camera.backend %q", c.Camera.Backend))
	}
	if c.Camera.Index < 0 {
		errs = append(errs, errors.New("camera.index cannot be negative"))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		errs = append(errs, errors.New("camera width, height and fps cannot be negative"))
	}
	if c.Camera.PixelFormat != "" && !pixelFormats[c.Camera.PixelFormat] {
		errs = append(errs, fmt.Errorf("unsupported camera.pixelFormat %q", c.Camera.PixelFormat))
	}

	if _, err := decoder.ParseSymbols(c.Scan.Symbols); err != nil {
		errs = append(errs, err)
	}
	if c.Scan.PollIntervalMs < 0 || c.Scan.ReadTimeoutMs < 0 {
		errs = append(errs, errors.New("scan intervals cannot be negative"))
	}
	if c.Scan.QueueSize < 0 {
		errs = append(errs, errors.New("scan.queueSize cannot be negative"))
	}

	if c.Record.FPS < 0 {
		errs = append(errs, errors.New("record.fps cannot be negative"))
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s Scan) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

func (s Scan) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// Timeouts returns the configured bounds, falling back to
// DefaultTimeoutSec when neither is set.
func (s Scan) Timeouts() (sec, frames *int) {
	if s.TimeoutSec == nil && s.TimeoutFrames == nil {
		def := DefaultTimeoutSec
		return &def, nil
	}
	return s.TimeoutSec, s.TimeoutFrames
}

func (s Scan) SymbolTypes() []decoder.Symbol {
	symbols, _ := decoder.ParseSymbols(s.Symbols)
	return symbols
}
