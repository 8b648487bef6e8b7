// Package pptxtest builds minimal presentation archives for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"strings"
	"testing"
)

// Picture is a top-level picture. Ext selects the media file extension.
type Picture struct {
	Name         string
	Data         []byte
	Ext          string
	X, Y, CX, CY int64
}

// Slide describes one page.
type Slide struct {
	Pictures []Picture
	// Notes are the paragraphs of the speaker notes; nil means no notes page.
	Notes []string
	// Links are extra relationship targets such as video URLs or audio files.
	Links []string
}

// Deck describes a whole presentation.
type Deck struct {
	CX, CY int64
	Slides []Slide
}

// Default 16:9 page size in EMU.
const (
	WidescreenCX = 12192000
	WidescreenCY = 6858000
)

// Write creates the archive at path.
func Write(tb testing.TB, path string, deck Deck) {
	tb.Helper()
	if err := os.WriteFile(path, Bytes(tb, deck), 0o644); err != nil {
		tb.Fatalf("write pptx: %v", err)
	}
}

// Bytes returns the archive contents.
func Bytes(tb testing.TB, deck Deck) []byte {
	tb.Helper()
	if deck.CX == 0 || deck.CY == 0 {
		deck.CX, deck.CY = WidescreenCX, WidescreenCY
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			tb.Fatalf("zip write %s: %v", name, err)
		}
	}

	var ids, presRels strings.Builder
	media := 0
	for i, slide := range deck.Slides {
		n := i + 1
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n+1)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s/slide" Target="slides/slide%d.xml"/>`, n+1, relNS, n)

		var pics, rels strings.Builder
		for j, pic := range slide.Pictures {
			media++
			ext := pic.Ext
			if ext == "" {
				ext = ".gif"
			}
			mediaName := fmt.Sprintf("image%d%s", media, ext)
			add("ppt/media/"+mediaName, pic.Data)

			rid := fmt.Sprintf("rIdPic%d", j+1)
			fmt.Fprintf(&rels, `<Relationship Id="%s" Type="%s/image" Target="../media/%s"/>`, rid, relNS, mediaName)
			fmt.Fprintf(&pics, picTemplate, j+2, html.EscapeString(pic.Name), rid, pic.X, pic.Y, pic.CX, pic.CY)
		}
		for j, link := range slide.Links {
			mode := ""
			if strings.HasPrefix(link, "http") {
				mode = ` TargetMode="External"`
			}
			fmt.Fprintf(&rels, `<Relationship Id="rIdLink%d" Type="%s/video" Target="%s"%s/>`, j+1, relNS, html.EscapeString(link), mode)
		}
		if slide.Notes != nil {
			fmt.Fprintf(&rels, `<Relationship Id="rIdNotes" Type="%s/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, relNS, n)
			add(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), []byte(notesXML(slide.Notes)))
		}

		add(fmt.Sprintf("ppt/slides/slide%d.xml", n), []byte(fmt.Sprintf(slideTemplate, pics.String())))
		add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), []byte(fmt.Sprintf(relsTemplate, rels.String())))
	}

	add("ppt/presentation.xml", []byte(fmt.Sprintf(presentationTemplate, ids.String(), deck.CX, deck.CY)))
	add("ppt/_rels/presentation.xml.rels", []byte(fmt.Sprintf(relsTemplate, presRels.String())))

	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// AnimatedGIF encodes an animation of n solid frames of size w x h.
func AnimatedGIF(tb testing.TB, n, delayCs, w, h int) []byte {
	tb.Helper()
	pal := color.Palette{color.Black, color.White, color.RGBA{R: 255, A: 255}, color.RGBA{G: 255, A: 255}}
	g := &gif.GIF{}
	for i := 0; i < n; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), pal)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(i % len(pal))
		}
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, delayCs)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		tb.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// PNG encodes a solid image of size w x h.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

const presentationTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>%s</p:sldIdLst><p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`

const relsTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">%s</Relationships>`

const slideTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld></p:sld>`

const picTemplate = `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill><p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"/></p:spPr></p:pic>`

func notesXML(paragraphs []string) string {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<a:p>")
		for i, line := range strings.Split(p, "\n") {
			if i > 0 {
				body.WriteString("<a:br/>")
			}
			fmt.Fprintf(&body, "<a:r><a:rPr lang=\"en-US\"/><a:t>%s</a:t></a:r>", html.EscapeString(line))
		}
		body.WriteString("</a:p>")
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:notes xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>` +
		body.String() + `</p:txBody></p:sp></p:spTree></p:cSld></p:notes>`
}
