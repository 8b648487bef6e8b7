package processor

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"pagemotion/internal/animation"
	"pagemotion/internal/compositor"
	"pagemotion/internal/jobs"
	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pptx"
)

// animate composites every page of the document over its snapshot and
// writes one file per page into outDir. Snapshots are released when the job
// ends, whatever the outcome.
func (p *Processor) animate(ctx context.Context, payload jobs.AnimatePayload, workDir, outDir string) error {
	log := p.log.FromContext(ctx)
	defer p.inputHandler.Release(ctx, payload.SnapshotKeys...)

	docs, err := p.inputHandler.Materialize(ctx, workDir, []string{payload.DocumentKey}, []string{"document"})
	if err != nil {
		return err
	}
	names := make([]string, len(payload.SnapshotKeys))
	for i := range names {
		names[i] = fmt.Sprintf("snapshot%d", i+1)
	}
	snapshots, err := p.inputHandler.Materialize(ctx, filepath.Join(workDir, "snapshots"), payload.SnapshotKeys, names)
	if err != nil {
		return err
	}

	pages, err := ComposeDocument(ctx, p.engine, docs[0], snapshots, outDir)
	for _, page := range pages {
		log.Debug("page rendered",
			"slide", page.Number,
			"animated", page.Animated,
			"animations", page.Animations,
			"frames", page.FrameBudget,
			"delay_ms", page.DelayMs,
		)
	}
	return err
}

// ComposeDocument renders one output file per slide of the document at
// docPath into outDir, pairing slides with snapshots in order. Having fewer
// snapshots than slides is unprocessable and renders nothing.
func ComposeDocument(ctx context.Context, engine *compositor.Engine, docPath string, snapshots []string, outDir string) ([]compositor.PageResult, error) {
	doc, err := pptx.Open(docPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if len(snapshots) < len(doc.Slides) {
		return nil, errors.Unprocessablef("document has %d slides but only %d snapshots were uploaded", len(doc.Slides), len(snapshots))
	}

	pages := make([]compositor.PageResult, 0, len(doc.Slides))
	for i, slide := range doc.Slides {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		build, err := slideAnimations(doc, slide)
		if err != nil {
			return pages, err
		}
		page, err := engine.RenderPage(outDir, slide.Number, snapshots[i], build)
		if err != nil {
			return pages, errors.Wrap(err, "processor.animate", "render page").WithField("slide", slide.Number)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// slideAnimations returns nil when the slide carries no GIF pictures, which
// makes the page a pass-through copy of its snapshot.
func slideAnimations(doc *pptx.Document, slide pptx.Slide) (func(bg image.Image) ([]*animation.Descriptor, error), error) {
	gifs, err := doc.GIFs(slide)
	if err != nil {
		return nil, err
	}
	if len(gifs) == 0 {
		return nil, nil
	}

	return func(bg image.Image) ([]*animation.Descriptor, error) {
		anims := make([]*animation.Descriptor, 0, len(gifs))
		for _, g := range gifs {
			frames, delay, err := animation.DecodeGIFBytes(g.Data)
			if err != nil {
				return nil, err
			}
			rect := g.Placement.Pixels(doc.PageSize, bg.Bounds().Size())
			d, err := animation.New(g.Name, frames, delay, rect)
			if err != nil {
				return nil, err
			}
			anims = append(anims, d)
		}
		return anims, nil
	}, nil
}

