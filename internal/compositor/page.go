package compositor

import (
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"

	"pagemotion/internal/animation"
	"pagemotion/internal/pkg/errors"
)

// PageResult describes the file written for one page.
type PageResult struct {
	Number      int
	Path        string
	Animated    bool
	Animations  int
	FrameBudget int
	DelayMs     int
}

// LoadImage decodes a snapshot in any of the supported raster formats.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, "compositor.load", "open snapshot")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnprocessable, "compositor.load", "decode snapshot").
			WithField("file", filepath.Base(path))
	}
	return img, nil
}

// RenderPage writes the output for page number (1-based) into outDir. Pages
// whose animations do not move are copied through as slide<N><ext>; animated
// pages become slide<N>.gif. build receives the decoded background so callers
// can convert placements into pixel space.
func (e *Engine) RenderPage(outDir string, number int, snapshot string, build func(bg image.Image) ([]*animation.Descriptor, error)) (PageResult, error) {
	result := PageResult{Number: number}

	var (
		bg    image.Image
		anims []*animation.Descriptor
		err   error
	)
	if build != nil {
		bg, err = LoadImage(snapshot)
		if err != nil {
			return result, err
		}
		anims, err = build(bg)
		if err != nil {
			return result, err
		}
	}

	plan, err := animation.Normalize(anims, animation.InitialEstimate(anims))
	if err != nil {
		return result, err
	}
	result.Animations = len(plan.Animations)

	if bg != nil {
		if g, ok := e.Render(bg, plan); ok {
			result.Path = filepath.Join(outDir, fmt.Sprintf("slide%d.gif", number))
			result.Animated = true
			result.FrameBudget = plan.FrameBudget
			result.DelayMs = plan.DelayMs()
			if err := writeGIF(result.Path, g); err != nil {
				return result, err
			}
			return result, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(snapshot))
	result.Path = filepath.Join(outDir, fmt.Sprintf("slide%d%s", number, ext))
	if err := copyFile(snapshot, result.Path); err != nil {
		return result, err
	}
	return result, nil
}

func writeGIF(path string, g *gif.GIF) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.write", "create composite")
	}
	if err := Encode(f, g); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.write", "close composite")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.copy", "open snapshot")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.copy", "create page")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.copy", "copy page")
	}
	if err := out.Close(); err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, "compositor.copy", "close page")
	}
	return nil
}
