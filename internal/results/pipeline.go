package results

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"pagemotion/internal/jobs"
	apperrors "pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
)

// ArchiveRoot is the top-level directory inside every poll archive.
const ArchiveRoot = "response"

// Archive is a packaged poll response. File is opened for reading and
// must be closed by the caller; the path behind it is already scheduled
// for removal on the next poll.
type Archive struct {
	File   *os.File
	Name   string
	Size   int64
	JobIDs []string
}

// Close closes the archive file.
func (a *Archive) Close() error {
	return a.File.Close()
}

// Pipeline is the result buffer and retention queue of one job kind.
type Pipeline struct {
	kind      jobs.Kind
	buffer    Buffer
	retention *Retention
	dir       string
	log       *logger.Logger

	// mu serializes polls of this kind.
	mu sync.Mutex
}

// NewPipeline creates the pipeline for kind. Archives are written to dir.
func NewPipeline(kind jobs.Kind, buffer Buffer, dir string, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		kind:      kind,
		buffer:    buffer,
		retention: NewRetention(),
		dir:       dir,
		log:       log.WithComponent("results").With("kind", string(kind)),
	}
}

// Kind is the job kind served by p.
func (p *Pipeline) Kind() jobs.Kind {
	return p.kind
}

// Publish makes res available to the next poll.
func (p *Pipeline) Publish(ctx context.Context, res jobs.Result) error {
	if err := p.buffer.Push(ctx, res); err != nil {
		return apperrors.Wrap(err, "results.publish", "buffer result")
	}
	return nil
}

// Ready is the number of results waiting for the next poll.
func (p *Pipeline) Ready(ctx context.Context) (int64, error) {
	return p.buffer.Len(ctx)
}

// Retention exposes the pipeline's retention queue.
func (p *Pipeline) Retention() *Retention {
	return p.retention
}

// Poll removes everything handed out by the previous poll, then packages
// every buffered result into one archive. It returns nil when nothing is
// ready. Artifacts included in the archive, and the archive itself, are
// removed by the next Poll.
func (p *Pipeline) Poll(ctx context.Context) (*Archive, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if removed, err := p.retention.Sweep(); err != nil {
		p.log.Warn("retention sweep incomplete", "removed", removed, "error", err.Error())
	} else if removed > 0 {
		p.log.Debug("retention sweep", "removed", removed)
	}

	ready, err := p.buffer.Drain(ctx)
	if err != nil {
		if len(ready) == 0 {
			return nil, apperrors.Wrap(err, "results.poll", "drain results")
		}
		p.log.Error("dropped unreadable buffered results", "error", err.Error())
	}
	if len(ready) == 0 {
		return nil, nil
	}

	archivePath := filepath.Join(p.dir, "response-"+uuid.NewString()+".zip")
	jobIDs, err := p.pack(archivePath, ready)
	p.retention.Schedule(archivePath)
	if err != nil {
		p.requeue(ctx, ready)
		return nil, err
	}
	for _, res := range ready {
		if res.ContentPath != "" {
			p.retention.Schedule(res.ContentPath)
		}
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.poll", "open archive")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.poll", "stat archive")
	}

	p.log.Info("results packaged", "jobs", len(jobIDs), "bytes", info.Size())
	return &Archive{File: f, Name: filepath.Base(archivePath), Size: info.Size(), JobIDs: jobIDs}, nil
}

func (p *Pipeline) pack(archivePath string, ready []jobs.Result) ([]string, error) {
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.pack", "create archive")
	}

	zw := zip.NewWriter(out)
	jobIDs := make([]string, 0, len(ready))
	for _, res := range ready {
		prefix := path.Join(ArchiveRoot, res.JobID)
		err := fs.ErrNotExist
		if res.ContentPath != "" {
			err = addDir(zw, res.ContentPath, prefix)
		}
		if errors.Is(err, fs.ErrNotExist) {
			if !res.Failed() {
				p.log.Warn("result content missing", "job_id", res.JobID, "path", res.ContentPath)
				continue
			}
			// A failed job without a result directory still reports its error.
			err = addFailure(zw, res, prefix)
		}
		if err != nil {
			zw.Close()
			out.Close()
			return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.pack", "package result").
				WithField("job_id", res.JobID)
		}
		jobIDs = append(jobIDs, res.JobID)
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.pack", "finish archive")
	}
	if err := out.Close(); err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeInternal, "results.pack", "close archive")
	}
	return jobIDs, nil
}

// requeue hands results back to the buffer after a failed poll so the next
// poll can deliver them.
func (p *Pipeline) requeue(ctx context.Context, ready []jobs.Result) {
	ctx = context.WithoutCancel(ctx)
	for _, res := range ready {
		if err := p.buffer.Push(ctx, res); err != nil {
			p.log.Error("result lost", "job_id", res.JobID, "path", res.ContentPath, "error", err.Error())
			continue
		}
		p.log.Warn("result requeued after failed poll", "job_id", res.JobID)
	}
}

func addFailure(zw *zip.Writer, res jobs.Result, prefix string) error {
	body, err := json.MarshalIndent(jobs.Failure{
		JobID:   res.JobID,
		Kind:    res.Kind,
		Code:    res.Code,
		Message: res.Message,
	}, "", "  ")
	if err != nil {
		return err
	}
	w, err := zw.Create(path.Join(prefix, jobs.FailureFile))
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// addDir writes every regular file under root into zw below prefix, using
// paths relative to root.
func addDir(zw *zip.Writer, root, prefix string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return addFile(zw, p, path.Join(prefix, filepath.ToSlash(rel)))
	})
}

func addFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// Pipelines holds one Pipeline per job kind.
type Pipelines map[jobs.Kind]*Pipeline

// Publish routes res to the pipeline of its kind.
func (ps Pipelines) Publish(ctx context.Context, res jobs.Result) error {
	p, ok := ps[res.Kind]
	if !ok {
		return apperrors.Newf(apperrors.CodeInternal, "no result pipeline for kind %q", res.Kind)
	}
	return p.Publish(ctx, res)
}
