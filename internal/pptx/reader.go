// Package pptx reads the parts of a presentation archive that the pipeline
// needs: page size and order, top-level pictures, speaker notes, relationship
// targets and embedded media.
package pptx

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"pagemotion/internal/animation"
	"pagemotion/internal/pkg/errors"
)

const (
	presentationPart = "ppt/presentation.xml"
	mediaPrefix      = "ppt/media/"

	relTypeSlide      = "/slide"
	relTypeNotesSlide = "/notesSlide"
)

// Picture is a top-level picture on a slide.
type Picture struct {
	Name      string
	Part      string
	Placement animation.Placement
}

// Slide is one page in presentation order.
type Slide struct {
	Number   int
	Part     string
	Pictures []Picture
	Notes    string
	// Targets lists every relationship target of the slide, in document order.
	Targets []string
}

// Document is an opened presentation archive.
type Document struct {
	PageSize animation.PageSize
	Slides   []Slide

	files  []*zip.File
	byName map[string]*zip.File
	closer io.Closer
}

// Open reads the archive at p. Archives that are not presentations are
// reported as unprocessable.
func Open(p string) (*Document, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnprocessable, "pptx.open", "document is not a readable presentation")
	}

	doc, err := newDocument(&zr.Reader, zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return doc, nil
}

// OpenReader reads an archive of the given size from r, such as an uploaded
// multipart file.
func OpenReader(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnprocessable, "pptx.open", "document is not a readable presentation")
	}
	return newDocument(zr, nil)
}

func newDocument(zr *zip.Reader, closer io.Closer) (*Document, error) {
	doc := &Document{files: zr.File, byName: make(map[string]*zip.File, len(zr.File)), closer: closer}
	for _, f := range zr.File {
		doc.byName[f.Name] = f
	}
	if err := doc.load(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Close releases the archive.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ReadPart returns the bytes of an archive member.
func (d *Document) ReadPart(name string) ([]byte, error) {
	f, ok := d.byName[name]
	if !ok {
		return nil, errors.Newf(errors.CodeUnprocessable, "presentation part %s is missing", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnprocessable, "pptx.read", "open presentation part")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnprocessable, "pptx.read", "read presentation part")
	}
	return data, nil
}

// MediaParts lists every embedded media member.
func (d *Document) MediaParts() []string {
	var parts []string
	for _, f := range d.files {
		if strings.HasPrefix(f.Name, mediaPrefix) && !strings.HasSuffix(f.Name, "/") {
			parts = append(parts, f.Name)
		}
	}
	return parts
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
	SlideSize struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

type relationshipsXML struct {
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type slideXML struct {
	Pictures []pictureXML `xml:"cSld>spTree>pic"`
}

type pictureXML struct {
	NonVisual struct {
		Props struct {
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	Blip struct {
		Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
	} `xml:"blipFill>blip"`
	Xfrm struct {
		Off struct {
			X int64 `xml:"x,attr"`
			Y int64 `xml:"y,attr"`
		} `xml:"off"`
		Ext struct {
			CX int64 `xml:"cx,attr"`
			CY int64 `xml:"cy,attr"`
		} `xml:"ext"`
	} `xml:"spPr>xfrm"`
}

func (d *Document) load() error {
	var pres presentationXML
	if err := d.decodePart(presentationPart, &pres); err != nil {
		return err
	}
	if pres.SlideSize.CX <= 0 || pres.SlideSize.CY <= 0 {
		return errors.Unprocessable("presentation has no slide size")
	}
	d.PageSize = animation.PageSize{CX: pres.SlideSize.CX, CY: pres.SlideSize.CY}

	rels, err := d.relationships(presentationPart)
	if err != nil {
		return err
	}

	for i, id := range pres.SlideIDs {
		rel, ok := rels[id.RID]
		if !ok || !strings.HasSuffix(rel.Type, relTypeSlide) {
			return errors.Newf(errors.CodeUnprocessable, "slide relationship %s is missing", id.RID)
		}
		slide, err := d.loadSlide(i+1, resolveTarget(presentationPart, rel.Target))
		if err != nil {
			return err
		}
		d.Slides = append(d.Slides, slide)
	}
	return nil
}

func (d *Document) loadSlide(number int, part string) (Slide, error) {
	slide := Slide{Number: number, Part: part}

	var sx slideXML
	if err := d.decodePart(part, &sx); err != nil {
		return slide, err
	}

	rels, order, err := d.orderedRelationships(part)
	if err != nil {
		return slide, err
	}
	for _, rel := range order {
		slide.Targets = append(slide.Targets, rel.Target)
	}

	for _, pic := range sx.Pictures {
		rel, ok := rels[pic.Blip.Embed]
		if !ok || rel.TargetMode == "External" {
			continue
		}
		slide.Pictures = append(slide.Pictures, Picture{
			Name: pic.NonVisual.Props.Name,
			Part: resolveTarget(part, rel.Target),
			Placement: animation.Placement{
				OffX: pic.Xfrm.Off.X,
				OffY: pic.Xfrm.Off.Y,
				CX:   pic.Xfrm.Ext.CX,
				CY:   pic.Xfrm.Ext.CY,
			},
		})
	}

	for _, rel := range order {
		if strings.HasSuffix(rel.Type, relTypeNotesSlide) {
			notes, err := d.readNotes(resolveTarget(part, rel.Target))
			if err != nil {
				return slide, err
			}
			slide.Notes = notes
			break
		}
	}
	return slide, nil
}

func (d *Document) decodePart(name string, v any) error {
	data, err := d.ReadPart(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnprocessable, "pptx.decode", "malformed presentation part").
			WithField("part", name)
	}
	return nil
}

func (d *Document) relationships(part string) (map[string]relationship, error) {
	rels, _, err := d.orderedRelationships(part)
	return rels, err
}

// orderedRelationships reads the .rels part belonging to part. A part
// without relationships yields an empty result.
func (d *Document) orderedRelationships(part string) (map[string]relationship, []relationship, error) {
	relsPart := path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
	if _, ok := d.byName[relsPart]; !ok {
		return map[string]relationship{}, nil, nil
	}

	var rx relationshipsXML
	if err := d.decodePart(relsPart, &rx); err != nil {
		return nil, nil, err
	}
	byID := make(map[string]relationship, len(rx.Relationships))
	for _, rel := range rx.Relationships {
		byID[rel.ID] = rel
	}
	return byID, rx.Relationships, nil
}

// resolveTarget turns a relationship target into an archive member name.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}
