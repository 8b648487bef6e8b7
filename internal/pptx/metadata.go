package pptx

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"pagemotion/internal/animation"
	"pagemotion/internal/pkg/errors"
)

// MetadataFile is the name of the summary written next to the extracted media.
const MetadataFile = "metadata.json"

const (
	Aspect4x3  = "4:3"
	Aspect16x9 = "16:9"
)

// VideoTokens mark a relationship target as a video reference. Hosting URLs
// keep their trailing slash so look-alike domains do not match.
var VideoTokens = []string{
	".mov", ".qt", ".mp4", ".m4v", ".mpg", ".mpeg", ".mpe", ".m15", ".m75",
	".m2v", ".ts", ".wmv", ".dvi", ".avi", ".vfw", ".asf",
	"https://www.youtube.com/",
	"https://player.vimeo.com/",
	"https://dailymotion.com/",
}

// AudioTokens mark a relationship target as an audio reference.
var AudioTokens = []string{
	".aif", ".aiff", ".au", ".snd", ".mid", ".midi", ".mp3", ".mpga", ".m4a",
	".wav", ".wave", ".bwf", ".aa", ".aax", ".wma", ".aac", ".caf", ".m4r",
	".ac3", ".eac3",
}

// Metadata is the per-document summary. Every slice has one entry per slide.
type Metadata struct {
	AspectRatio string     `json:"aspect_ratio"`
	Notes       []string   `json:"notes"`
	Videos      [][]string `json:"videos"`
	Audio       [][]string `json:"audio"`
}

// AspectRatio classifies the page size. Anything narrower than 1.4 is 4:3.
func AspectRatio(size animation.PageSize) string {
	if size.CY > 0 && float64(size.CX)/float64(size.CY) < 1.4 {
		return Aspect4x3
	}
	return Aspect16x9
}

// Metadata summarizes the document.
func (d *Document) Metadata() Metadata {
	m := Metadata{
		AspectRatio: AspectRatio(d.PageSize),
		Notes:       make([]string, 0, len(d.Slides)),
		Videos:      make([][]string, 0, len(d.Slides)),
		Audio:       make([][]string, 0, len(d.Slides)),
	}
	for _, s := range d.Slides {
		m.Notes = append(m.Notes, s.Notes)
		m.Videos = append(m.Videos, matchTargets(s.Targets, VideoTokens))
		m.Audio = append(m.Audio, matchTargets(s.Targets, AudioTokens))
	}
	return m
}

func matchTargets(targets, tokens []string) []string {
	out := []string{}
	for _, target := range targets {
		lower := strings.ToLower(target)
		for _, token := range tokens {
			if strings.Contains(lower, token) && !slices.Contains(out, target) {
				out = append(out, target)
			}
		}
	}
	return out
}

// ExtractMetadata writes every embedded media file and the metadata summary
// into dir, which must exist. It returns the names written.
func (d *Document) ExtractMetadata(dir string) ([]string, error) {
	var written []string
	for _, part := range d.MediaParts() {
		data, err := d.ReadPart(part)
		if err != nil {
			return written, err
		}
		name := path.Base(part)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return written, errors.WrapWithCode(err, errors.CodeInternal, "pptx.media", "copy embedded media").
				WithField("media", name)
		}
		written = append(written, name)
	}

	body, err := json.MarshalIndent(d.Metadata(), "", "  ")
	if err != nil {
		return written, errors.WrapWithCode(err, errors.CodeInternal, "pptx.metadata", "encode metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), body, 0o644); err != nil {
		return written, errors.WrapWithCode(err, errors.CodeInternal, "pptx.metadata", "write metadata")
	}
	return append(written, MetadataFile), nil
}

// GIF is an animated picture with its decoded source bytes.
type GIF struct {
	Picture
	Data []byte
}

// GIFs returns the top-level pictures of s whose media is a GIF.
func (d *Document) GIFs(s Slide) ([]GIF, error) {
	var out []GIF
	for _, pic := range s.Pictures {
		data, err := d.ReadPart(pic.Part)
		if err != nil {
			return nil, err
		}
		if animation.IsGIF(data) {
			out = append(out, GIF{Picture: pic, Data: data})
		}
	}
	return out, nil
}
