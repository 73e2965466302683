package viz

import (
	"context"

	"go.uber.org/zap"

	"github.com/san-kum/armsim/internal/dynamo"
)

// HeadlessRenderer presents nothing. It records one row per frame into a
// Result and logs joint positions at debug level.
type HeadlessRenderer struct {
	src    Source
	logger *zap.Logger
	result dynamo.Result
	frames int

	t      float64
	q, tgt dynamo.Vector
}

func NewHeadlessRenderer(src Source, logger *zap.Logger) *HeadlessRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadlessRenderer{src: src, logger: logger.Named("render")}
}

func (h *HeadlessRenderer) UpdateRender() error {
	h.t = h.src.Time()
	h.q = h.src.JointPositions()
	h.tgt = h.src.DriveTarget()
	return nil
}

// Render records the last snapshot. A completed batch is always recorded,
// so ctx is not consulted.
func (h *HeadlessRenderer) Render(context.Context) error {
	h.frames++
	h.result.Append(h.t, h.q, h.tgt)
	h.logger.Debug("frame", zap.Int("frame", h.frames), zap.Float64("t", h.t), zap.Float64s("qpos", h.q))
	return nil
}

func (h *HeadlessRenderer) Frames() int { return h.frames }

// Result returns the recorded trajectory. It aliases the renderer's storage.
func (h *HeadlessRenderer) Result() *dynamo.Result { return &h.result }
