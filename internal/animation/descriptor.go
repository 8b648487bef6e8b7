// Package animation models the looped animations placed on a page and
// reconciles their native frame rates onto one shared clock.
package animation

import (
	"image"

	"pagemotion/internal/pkg/errors"
)

// DefaultDelayMs replaces a missing or zero native delay.
const DefaultDelayMs = 100

// Descriptor is one decoded animation, where it sits on the background and
// how fast it advances. Frames are never modified after construction.
type Descriptor struct {
	Name   string
	Frames []image.Image

	// DelayMs is the time between two native frames.
	DelayMs int

	// Placement on the background in pixels.
	X, Y          int
	Width, Height int

	// Factor is the number of composite frames each native frame is held for.
	// It is set by Normalize and is always >= 1.
	Factor int
}

// New builds a descriptor. Width and height are clamped to at least one pixel
// and a non-positive delay is replaced by DefaultDelayMs.
func New(name string, frames []image.Image, delayMs int, rect image.Rectangle) (*Descriptor, error) {
	if len(frames) == 0 {
		return nil, errors.New(errors.CodeValidation, "animation has no frames").WithField("animation", name)
	}
	if delayMs <= 0 {
		delayMs = DefaultDelayMs
	}
	return &Descriptor{
		Name:    name,
		Frames:  frames,
		DelayMs: delayMs,
		X:       rect.Min.X,
		Y:       rect.Min.Y,
		Width:   max(rect.Dx(), 1),
		Height:  max(rect.Dy(), 1),
		Factor:  1,
	}, nil
}

// FrameCount is the number of native frames.
func (d *Descriptor) FrameCount() int {
	return len(d.Frames)
}

// StretchedLength is how many composite frames one full native cycle takes.
func (d *Descriptor) StretchedLength() int {
	return d.FrameCount() * d.factor()
}

// FrameIndex returns the native frame shown at composite frame t. Once the
// stretched length is exhausted the last frame is held; it never wraps.
func (d *Descriptor) FrameIndex(t int) int {
	if t < 0 {
		return 0
	}
	if t < d.StretchedLength() {
		return t / d.factor()
	}
	return d.FrameCount() - 1
}

// Frame returns the native frame shown at composite frame t.
func (d *Descriptor) Frame(t int) image.Image {
	return d.Frames[d.FrameIndex(t)]
}

// Rect is the destination rectangle on the background.
func (d *Descriptor) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

func (d *Descriptor) factor() int {
	if d.Factor < 1 {
		return 1
	}
	return d.Factor
}
