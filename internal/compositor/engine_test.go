package compositor

import (
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/draw"

	"pagemotion/internal/animation"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// shades returns n distinct solid frames; frame i has red channel base+i*10.
func shades(n int, base uint8) []image.Image {
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = uniform(4, 4, color.RGBA{R: base + uint8(i*10), G: 1, B: 2, A: 255})
	}
	return frames
}

func near(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	diff := func(x, y uint32) uint32 {
		if x > y {
			return x - y
		}
		return y - x
	}
	const tol = 2 << 8
	return diff(ar, br) <= tol && diff(ag, bg) <= tol && diff(ab, bb) <= tol
}

func scenario(t *testing.T) (image.Image, animation.Plan) {
	t.Helper()
	a, err := animation.New("a", shades(5, 100), 100, image.Rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	b, err := animation.New("b", shades(3, 20), 300, image.Rect(20, 0, 30, 10))
	if err != nil {
		t.Fatal(err)
	}
	plan, err := animation.Normalize([]*animation.Descriptor{b, a}, 5)
	if err != nil {
		t.Fatal(err)
	}
	return uniform(40, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255}), plan
}

func TestFramesSampleAndHold(t *testing.T) {
	bg, plan := scenario(t)
	frames := New(nil).frames(bg, plan)

	wantA := []int{0, 1, 2, 3, 4, 4, 4, 4, 4}
	wantB := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}

	for tick := 0; tick < plan.FrameBudget; tick++ {
		frame := frames.at(tick)

		if got, want := frame.At(5, 5), (color.RGBA{R: 100 + uint8(wantA[tick]*10), G: 1, B: 2, A: 255}); !near(got, want) {
			t.Errorf("t=%d: animation a pixel = %v, want %v", tick, got, want)
		}
		if got, want := frame.At(25, 5), (color.RGBA{R: 20 + uint8(wantB[tick]*10), G: 1, B: 2, A: 255}); !near(got, want) {
			t.Errorf("t=%d: animation b pixel = %v, want %v", tick, got, want)
		}
		if got := frame.At(15, 5); !near(got, color.White) {
			t.Errorf("t=%d: background pixel = %v, want white", tick, got)
		}
	}
}

func TestRenderProducesLoopedGIF(t *testing.T) {
	bg, plan := scenario(t)

	g, ok := New(nil).Render(bg, plan)
	if !ok {
		t.Fatal("expected animated output")
	}
	if len(g.Image) != 9 {
		t.Errorf("expected 9 frames, got %d", len(g.Image))
	}
	for i, d := range g.Delay {
		if d != 10 {
			t.Errorf("frame %d: expected delay 10cs, got %d", i, d)
		}
	}
	if g.LoopCount != 0 {
		t.Errorf("expected infinite loop, got %d", g.LoopCount)
	}
	if g.Image[0].Bounds() != bg.Bounds() {
		t.Errorf("expected frames the size of the background, got %v", g.Image[0].Bounds())
	}
}

func TestRenderStatic(t *testing.T) {
	bg := uniform(8, 8, color.RGBA{A: 255})
	e := New(nil)

	if _, ok := e.Render(bg, animation.Plan{}); ok {
		t.Error("expected static signal without animations")
	}

	still, err := animation.New("still", shades(1, 0), 100, image.Rect(0, 0, 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	plan, err := animation.Normalize([]*animation.Descriptor{still}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Render(bg, plan); ok {
		t.Error("expected static signal for single-frame animations")
	}
}

func TestRenderIndependentOfInsertionOrder(t *testing.T) {
	build := func(reverse bool) animation.Plan {
		a, _ := animation.New("a", shades(3, 50), 100, image.Rect(0, 0, 6, 6))
		b, _ := animation.New("b", shades(2, 150), 100, image.Rect(3, 3, 9, 9))
		anims := []*animation.Descriptor{a, b}
		if reverse {
			anims = []*animation.Descriptor{b, a}
		}
		plan, err := animation.Normalize(anims, 0)
		if err != nil {
			t.Fatal(err)
		}
		return plan
	}

	bg := uniform(10, 10, color.RGBA{A: 255})
	e := New(nil)
	p1, p2 := build(false), build(true)
	s1, s2 := e.frames(bg, p1), e.frames(bg, p2)

	for tick := 0; tick < p1.FrameBudget; tick++ {
		f1 := s1.at(tick)
		f2 := s2.at(tick)
		for i := range f1.Pix {
			if f1.Pix[i] != f2.Pix[i] {
				t.Fatalf("t=%d: frames differ at byte %d", tick, i)
			}
		}
	}
}

func TestRenderPage(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}

	snapshot := filepath.Join(dir, "page.png")
	f, err := os.Create(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, uniform(40, 10, color.RGBA{R: 255, G: 255, B: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	e := New(nil)

	animated, err := e.RenderPage(out, 1, snapshot, func(bg image.Image) ([]*animation.Descriptor, error) {
		if bg.Bounds().Dx() != 40 {
			t.Errorf("expected decoded background width 40, got %d", bg.Bounds().Dx())
		}
		a, err := animation.New("a", shades(4, 10), 50, image.Rect(0, 0, 10, 10))
		return []*animation.Descriptor{a}, err
	})
	if err != nil {
		t.Fatalf("RenderPage animated: %v", err)
	}
	if !animated.Animated || filepath.Base(animated.Path) != "slide1.gif" {
		t.Errorf("expected slide1.gif, got %+v", animated)
	}

	gf, err := os.Open(animated.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer gf.Close()
	g, err := gif.DecodeAll(gf)
	if err != nil {
		t.Fatalf("decode written gif: %v", err)
	}
	if len(g.Image) != 4 {
		t.Errorf("expected 4 frames, got %d", len(g.Image))
	}

	still, err := e.RenderPage(out, 2, snapshot, nil)
	if err != nil {
		t.Fatalf("RenderPage static: %v", err)
	}
	if still.Animated || filepath.Base(still.Path) != "slide2.png" {
		t.Errorf("expected slide2.png pass-through, got %+v", still)
	}
	if _, err := os.Stat(still.Path); err != nil {
		t.Errorf("expected copied page: %v", err)
	}
}

func TestCentiseconds(t *testing.T) {
	tests := []struct{ ms, want int }{
		{100, 10},
		{70, 7},
		{4, 1},
		{0, 1},
		{155, 16},
	}
	for _, tt := range tests {
		if got := centiseconds(tt.ms); got != tt.want {
			t.Errorf("centiseconds(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}
