package processor

import (
	"context"

	"pagemotion/internal/jobs"
	"pagemotion/internal/pptx"
)

// extractMetadata copies the document's embedded media and its metadata
// summary into outDir.
func (p *Processor) extractMetadata(ctx context.Context, payload jobs.MetadataPayload, workDir, outDir string) error {
	if payload.ReleaseDocument {
		defer p.inputHandler.Release(ctx, payload.DocumentKey)
	}

	docs, err := p.inputHandler.Materialize(ctx, workDir, []string{payload.DocumentKey}, []string{"document"})
	if err != nil {
		return err
	}

	doc, err := pptx.Open(docs[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	written, err := doc.ExtractMetadata(outDir)
	if err != nil {
		return err
	}
	p.log.FromContext(ctx).Debug("metadata extracted", "slides", len(doc.Slides), "files", len(written))
	return nil
}
