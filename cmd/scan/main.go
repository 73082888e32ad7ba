package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"vision-common/pkg/camera"
	"vision-common/pkg/config"
	"vision-common/pkg/decoder"
	"vision-common/pkg/utils"
	"vision-common/pkg/utils/ps"
	"vision-common/pkg/video"
	"vision-common/pkg/viewer"
)

// optInt is an int flag that remembers whether it was set.
type optInt struct{ v *int }

func (o *optInt) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.Itoa(*o.v)
}

func (o *optInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.v = &n
	return nil
}

type cameraFactory func(ctx context.Context, cfg config.Camera) (camera.Camera, error)

type decoderFactory func() (decoder.Decoder, func(), error)

var (
	configPath  = flag.String("config", "", "json config file")
	backend     = flag.String("backend", "", "camera backend (default from config: v4l2)")
	index       = flag.Int("index", -1, "camera device index")
	device      = flag.String("device", "", "v4l2 device path, overrides -index")
	imagePath   = flag.String("image", "", "image file for the image backend")
	symbols     = flag.String("symbols", "", "comma separated symbol types, e.g. qrcode,ean13")
	decoderName = flag.String("decoder", "zxing", "decoder backend")
	pollMs      = flag.Int("poll", -1, "poll interval in milliseconds")
	queue       = flag.Bool("queue", false, "decode on a separate goroutine fed by a frame queue")
	drain       = flag.Bool("drain", false, "with -queue, keep capturing until the timeout even after a hit")
	record      = flag.String("record", "", "record scanned frames to this .avi file")
	asJSON      = flag.Bool("json", false, "print the result as json")
	stats       = flag.Bool("stats", false, "print process cpu and memory after the scan")
	logLevel    = flag.String("log", "", "log level")

	timeoutSec    optInt
	timeoutFrames optInt

	cameras  = map[string]cameraFactory{config.BackendImage: openImage}
	decoders = map[string]decoderFactory{
		"zxing": func() (decoder.Decoder, func(), error) { return decoder.NewZxing(), func() {}, nil },
	}

	logger *zap.SugaredLogger
)

func init() {
	flag.Var(&timeoutSec, "sec", "timeout in seconds")
	flag.Var(&timeoutFrames, "frames", "timeout in frames")
}

type result struct {
	Found   bool           `json:"found"`
	Text    string         `json:"text,omitempty"`
	Symbol  decoder.Symbol `json:"symbol,omitempty"`
	Frames  int            `json:"frames"`
	Elapsed string         `json:"elapsed"`
	Process *ps.Process    `json:"process,omitempty"`
	CPU     *ps.CPU        `json:"cpu,omitempty"`
	Memory  *ps.Memory     `json:"memory,omitempty"`
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		utils.GetLogger().Error(err)
		return 2
	}
	if logger, err = utils.NewLogger(cfg.LogLevel); err != nil {
		utils.GetLogger().Error(err)
		return 2
	}
	utils.SetLogger(logger)
	defer logger.Sync()

	ctx, stop := utils.SignalContext(context.Background())
	defer stop()

	cam, err := openCamera(ctx, cfg)
	if err != nil {
		logger.Error(err)
		return 2
	}
	newDecoder, ok := decoders[*decoderName]
	if !ok {
		logger.Errorf("unknown decoder %q, available: %s", *decoderName, names(decoders))
		return 2
	}
	dec, release, err := newDecoder()
	if err != nil {
		logger.Error(err)
		return 2
	}
	defer release()

	var frames int
	v := viewer.New(cam, dec,
		viewer.WithLogger(logger),
		viewer.WithPollInterval(cfg.Scan.PollInterval()),
		viewer.WithReadTimeout(cfg.Scan.ReadTimeout()),
		viewer.WithCombinedTimeouts(cfg.Scan.AllowCombined),
		viewer.WithObserver(func(a viewer.Attempt) {
			frames++
			if a.Kind == viewer.TransientFailure {
				logger.Debugf("frame %d: %s", a.Frame, a.Cause)
			}
		}),
	)
	defer func() {
		if err := v.Close(); err != nil {
			logger.Warnf("close camera: %s", err)
		}
	}()

	sec, frameLimit := cfg.Scan.Timeouts()
	policy, err := viewer.NewPolicy(sec, frameLimit, cfg.Scan.AllowCombined)
	if err != nil {
		logger.Error(err)
		return 2
	}

	start := time.Now()
	var payload viewer.Payload
	if cfg.Scan.Queue {
		payload, err = v.FindCodeQueued(ctx, policy, viewer.QueueOptions{Size: cfg.Scan.QueueSize, Drain: cfg.Scan.Drain}, cfg.Scan.SymbolTypes()...)
	} else {
		payload, err = v.FindCode(ctx, policy, cfg.Scan.SymbolTypes()...)
	}
	res := result{Frames: frames, Elapsed: time.Since(start).Round(time.Millisecond).String()}
	switch {
	case err == nil:
		res.Found, res.Text, res.Symbol = true, payload.Text, payload.Symbol
	case errors.Is(err, viewer.ErrNotFound):
	default:
		logger.Error(err)
		return 2
	}

	if *stats {
		sampleStats(&res)
	}
	if err = printResult(res); err != nil {
		logger.Error(err)
		return 2
	}
	if !res.Found {
		return 1
	}
	return 0
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *backend != "" {
		cfg.Camera.Backend = *backend
	}
	if *index >= 0 {
		cfg.Camera.Index = *index
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *imagePath != "" {
		cfg.Camera.Image = *imagePath
		if *backend == "" {
			cfg.Camera.Backend = config.BackendImage
		}
	}
	if *symbols != "" {
		cfg.Scan.Symbols = strings.Split(*symbols, ",")
	}
	if timeoutSec.v != nil || timeoutFrames.v != nil {
		cfg.Scan.TimeoutSec, cfg.Scan.TimeoutFrames = timeoutSec.v, timeoutFrames.v
	}
	if *pollMs >= 0 {
		cfg.Scan.PollIntervalMs = *pollMs
	}
	if *queue {
		cfg.Scan.Queue = true
	}
	if *drain {
		cfg.Scan.Drain = true
	}
	if *record != "" {
		cfg.Record.Path = *record
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	return cfg, cfg.Validate()
}

func openCamera(ctx context.Context, cfg config.Config) (camera.Camera, error) {
	open, ok := cameras[cfg.Camera.Backend]
	if !ok {
		return nil, fmt.Errorf("camera backend %q not built in, available: %s", cfg.Camera.Backend, names(cameras))
	}
	cam, err := open(ctx, cfg.Camera)
	if err != nil {
		return nil, err
	}
	if cfg.Record.Path != "" {
		cam = video.NewRecorder(cam, cfg.Record.Path, cfg.Record.FPS, logger)
	}
	return cam, nil
}

func openImage(_ context.Context, cfg config.Camera) (camera.Camera, error) {
	return camera.OpenImage(cfg.Image)
}

func sampleStats(res *result) {
	if p, err := ps.Self(); err != nil {
		logger.Warnf("sample process: %s", err)
	} else {
		res.Process = &p
	}
	if c, err := ps.CPUStatus(); err != nil {
		logger.Warnf("sample cpu: %s", err)
	} else {
		res.CPU = &c
	}
	if m, err := ps.MemoryStatus(); err != nil {
		logger.Warnf("sample memory: %s", err)
	} else {
		res.Memory = &m
	}
}

func printResult(res result) error {
	if *asJSON {
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if res.Found {
		fmt.Println(res.Text)
	} else {
		fmt.Fprintf(os.Stderr, "no code found after %d frames (%s)\n", res.Frames, res.Elapsed)
	}
	if res.Process != nil {
		fmt.Fprintf(os.Stderr, "process cpu %.1f%% rss %s\n", res.Process.CPUPercent, humanize.Bytes(res.Process.RSS))
	}
	if res.CPU != nil {
		fmt.Fprintf(os.Stderr, "host cpu %.1f%%\n", res.CPU.Percent)
	}
	if res.Memory != nil {
		fmt.Fprintf(os.Stderr, "host memory %s / %s (%.1f%%)\n",
			humanize.Bytes(res.Memory.Used), humanize.Bytes(res.Memory.Total), res.Memory.UsedPercent)
	}
	return nil
}

func names[T any](m map[string]T) string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return strings.Join(res, ", ")
}
