// Package compositor overlays normalized animations onto a page snapshot and
// encodes the result as one looped GIF.
package compositor

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"

	"golang.org/x/image/draw"

	"pagemotion/internal/animation"
	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
)

// Engine renders composite frames. It holds no per-request state.
type Engine struct {
	log    *logger.Logger
	scaler draw.Scaler
}

// New creates an engine that resizes animation frames with bilinear filtering.
func New(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		log:    log.WithComponent("compositor"),
		scaler: draw.BiLinear,
	}
}

// Render produces the composite animation for plan over background. The
// second result is false when the page is static and the background should
// be used unchanged.
func (e *Engine) Render(background image.Image, plan animation.Plan) (*gif.GIF, bool) {
	if plan.Static() {
		return nil, false
	}

	frames := e.frames(background, plan)
	bounds := background.Bounds()
	delay := centiseconds(plan.DelayMs())

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, plan.FrameBudget),
		Delay:     make([]int, 0, plan.FrameBudget),
		LoopCount: 0,
		Config:    image.Config{ColorModel: color.Palette(palette.Plan9), Width: bounds.Dx(), Height: bounds.Dy()},
	}

	for t := 0; t < plan.FrameBudget; t++ {
		frame := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(frame, bounds, frames.at(t), bounds.Min)

		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, delay)
	}

	e.log.Debug("rendered composite",
		"frames", plan.FrameBudget,
		"animations", len(plan.Animations),
		"delay_ms", plan.DelayMs(),
	)
	return out, true
}

// Encode writes g to w.
func Encode(w io.Writer, g *gif.GIF) error {
	if err := gif.EncodeAll(w, g); err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.encode", "encode composite gif")
	}
	return nil
}

// frameSource composes the full-colour frames of one plan into a single
// working buffer.
type frameSource struct {
	background image.Image
	anims      []*animation.Descriptor
	scaled     [][]*image.RGBA
	work       *image.RGBA
}

func (e *Engine) frames(background image.Image, plan animation.Plan) *frameSource {
	return &frameSource{
		background: background,
		anims:      plan.Animations,
		scaled:     e.prescale(plan.Animations),
		work:       image.NewRGBA(background.Bounds()),
	}
}

// at resets the buffer to the background and pastes every animation's frame
// for tick t as an opaque rectangle. The image is reused by the next call.
func (s *frameSource) at(t int) *image.RGBA {
	bounds := s.work.Bounds()
	draw.Draw(s.work, bounds, s.background, bounds.Min, draw.Src)
	for i, a := range s.anims {
		draw.Draw(s.work, a.Rect(), s.scaled[i][a.FrameIndex(t)], image.Point{}, draw.Src)
	}
	return s.work
}

// prescale resizes every native frame once to its destination size.
func (e *Engine) prescale(anims []*animation.Descriptor) [][]*image.RGBA {
	scaled := make([][]*image.RGBA, len(anims))
	for i, a := range anims {
		dst := image.Rect(0, 0, a.Width, a.Height)
		frames := make([]*image.RGBA, a.FrameCount())
		for j, src := range a.Frames {
			img := image.NewRGBA(dst)
			e.scaler.Scale(img, dst, src, src.Bounds(), draw.Src, nil)
			frames[j] = img
		}
		scaled[i] = frames
	}
	return scaled
}

func centiseconds(ms int) int {
	return max((ms+5)/10, 1)
}
