package animation

import (
	"cmp"
	"image"
	"sort"

	"pagemotion/internal/pkg/errors"
)

// Plan is the outcome of normalizing the animations of one page.
type Plan struct {
	// Animations sorted ascending by native delay; the first is the reference.
	Animations  []*Descriptor
	FrameBudget int
}

// Reference is the fastest animation. It sets the output clock.
func (p Plan) Reference() *Descriptor {
	if len(p.Animations) == 0 {
		return nil
	}
	return p.Animations[0]
}

// DelayMs is the playback delay of the composite.
func (p Plan) DelayMs() int {
	if ref := p.Reference(); ref != nil {
		return ref.DelayMs
	}
	return DefaultDelayMs
}

// Static reports that nothing on the page moves and the background should be
// emitted unchanged instead of a one-frame animation.
func (p Plan) Static() bool {
	if len(p.Animations) == 0 || p.FrameBudget <= 1 {
		return true
	}
	for _, a := range p.Animations {
		if a.FrameCount() > 1 {
			return false
		}
	}
	return true
}

// Normalize sorts anims by native delay, sets every Factor relative to the
// fastest one and computes the frame budget. initialEstimate is a lower
// bound on the budget; negative values count as zero.
//
// Animations that tie on delay keep a deterministic order by placement, frame
// count, name and finally pixel content, so the paste order never depends on
// how they were supplied.
func Normalize(anims []*Descriptor, initialEstimate int) (Plan, error) {
	if initialEstimate < 0 {
		initialEstimate = 0
	}
	if len(anims) == 0 {
		return Plan{FrameBudget: initialEstimate}, nil
	}

	sorted := make([]*Descriptor, len(anims))
	copy(sorted, anims)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	ref := sorted[0]
	if ref.DelayMs <= 0 {
		return Plan{}, errors.Newf(errors.CodeValidation, "animation %q has non-positive delay %d", ref.Name, ref.DelayMs)
	}

	budget := initialEstimate
	for _, a := range sorted {
		if a.FrameCount() == 0 {
			return Plan{}, errors.New(errors.CodeValidation, "animation has no frames").WithField("animation", a.Name)
		}
		a.Factor = max(a.DelayMs/ref.DelayMs, 1)
		budget = max(budget, a.StretchedLength())
	}
	ref.Factor = 1

	return Plan{Animations: sorted, FrameBudget: budget}, nil
}

// InitialEstimate is the largest native frame count, used as the lower bound
// on the frame budget when the caller has nothing better.
func InitialEstimate(anims []*Descriptor) int {
	n := 0
	for _, a := range anims {
		n = max(n, a.FrameCount())
	}
	return n
}

func less(a, b *Descriptor) bool {
	if a.DelayMs != b.DelayMs {
		return a.DelayMs < b.DelayMs
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	if a.Width != b.Width {
		return a.Width < b.Width
	}
	if a.FrameCount() != b.FrameCount() {
		return a.FrameCount() < b.FrameCount()
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return compareFrames(a.Frames, b.Frames) < 0
}

// compareFrames orders two equally long frame sequences by pixel content.
// Sequences that compare equal paste identical pixels, so their relative
// order does not show in the output.
func compareFrames(a, b []image.Image) int {
	for i := range a {
		if c := compareImages(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareImages(a, b image.Image) int {
	ab, bb := a.Bounds(), b.Bounds()
	if c := cmp.Compare(ab.Dx(), bb.Dx()); c != 0 {
		return c
	}
	if c := cmp.Compare(ab.Dy(), bb.Dy()); c != 0 {
		return c
	}
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			for _, c := range [...]int{cmp.Compare(r1, r2), cmp.Compare(g1, g2), cmp.Compare(b1, b2), cmp.Compare(a1, a2)} {
				if c != 0 {
					return c
				}
			}
		}
	}
	return 0
}
