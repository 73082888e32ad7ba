//go:build opencv

package main

import (
	"context"

	"vision-common/pkg/camera"
	"vision-common/pkg/camera/cv"
	"vision-common/pkg/config"
	"vision-common/pkg/decoder"
	"vision-common/pkg/decoder/cvqr"
)

func init() {
	cameras[config.BackendOpenCV] = func(_ context.Context, cfg config.Camera) (camera.Camera, error) {
		return cv.Open(cfg.Index)
	}
	decoders["opencv"] = func() (decoder.Decoder, func(), error) {
		d := cvqr.New()
		return d, func() { _ = d.Close() }, nil
	}
}
