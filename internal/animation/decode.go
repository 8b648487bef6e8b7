package animation

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"io"

	"golang.org/x/image/draw"

	"pagemotion/internal/pkg/errors"
)

// IsGIF reports whether data starts with a GIF signature.
func IsGIF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))
}

// DecodeGIF decodes every frame of a GIF into full-canvas opaque images,
// honouring each frame's disposal method. The returned delay is the first
// frame's delay in milliseconds, or DefaultDelayMs when it is zero.
func DecodeGIF(r io.Reader) ([]image.Image, int, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, 0, errors.WrapWithCode(err, errors.CodeInternal, "animation.decode", "decode gif")
	}
	if len(g.Image) == 0 {
		return nil, 0, errors.New(errors.CodeInternal, "gif has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, frame := range g.Image {
			bounds = bounds.Union(frame.Bounds())
		}
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))

	for i, frame := range g.Image {
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = clone(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, flatten(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	delay := 0
	if len(g.Delay) > 0 {
		delay = g.Delay[0] * 10
	}
	if delay <= 0 {
		delay = DefaultDelayMs
	}
	return frames, delay, nil
}

// DecodeGIFBytes is DecodeGIF over an in-memory blob.
func DecodeGIFBytes(data []byte) ([]image.Image, int, error) {
	return DecodeGIF(bytes.NewReader(data))
}

func clone(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// flatten composites src over opaque black; transparency is not carried
// into the page.
func flatten(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	return dst
}
