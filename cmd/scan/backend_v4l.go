//go:build linux

package main

import (
	"context"

	"vision-common/pkg/camera"
	"vision-common/pkg/camera/v4l"
	"vision-common/pkg/config"
)

func init() {
	cameras[config.BackendV4L2] = openV4L
}

func openV4L(ctx context.Context, cfg config.Camera) (camera.Camera, error) {
	opts := v4l.Options{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS}
	if cfg.PixelFormat != "" {
		format, err := v4l.ParsePixelFormat(cfg.PixelFormat)
		if err != nil {
			return nil, err
		}
		opts.PixelFormat = format
	}

	dev := cfg.Device
	if dev == "" {
		dev = v4l.DeviceName(cfg.Index)
	}
	return v4l.Open(ctx, dev, opts)
}
