package results

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"pagemotion/internal/jobs"
)

func writeResultDir(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	for rel, body := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func zipEntries(t *testing.T, a *Archive) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(a.File, a.Size)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		entries[f.Name] = string(body)
	}
	return entries
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestPollTwoPhaseRetention(t *testing.T) {
	root := t.TempDir()
	responses := filepath.Join(root, "responses")
	if err := os.Mkdir(responses, 0o755); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	p := NewPipeline(jobs.KindAnimate, NewMemoryBuffer(), responses, nil)
	content := writeResultDir(t, root, "job-1", map[string]string{"slide1.gif": "gif", "slide2.png": "png"})
	if err := p.Publish(ctx, jobs.Result{JobID: "job-1", Kind: jobs.KindAnimate, ContentPath: content, Status: jobs.StatusDone}); err != nil {
		t.Fatal(err)
	}

	// First poll returns the archive and keeps the artifacts on disk.
	archive, err := p.Poll(ctx)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if archive == nil {
		t.Fatal("expected an archive")
	}
	entries := zipEntries(t, archive)
	archive.Close()

	want := map[string]string{
		"response/job-1/slide1.gif": "gif",
		"response/job-1/slide2.png": "png",
	}
	if len(entries) != len(want) {
		t.Errorf("archive entries = %v, want %v", entries, want)
	}
	for name, body := range want {
		if entries[name] != body {
			t.Errorf("entry %s = %q, want %q", name, entries[name], body)
		}
	}

	archivePath := filepath.Join(responses, archive.Name)
	if !exists(content) || !exists(archivePath) {
		t.Fatal("artifacts must survive the poll that returned them")
	}
	if got := len(p.Retention().Pending()); got != 2 {
		t.Errorf("expected content and archive scheduled, got %d", got)
	}

	// Second poll deletes them and reports nothing ready.
	again, err := p.Poll(ctx)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if again != nil {
		again.Close()
		t.Fatal("expected nothing ready on second poll")
	}
	if exists(content) || exists(archivePath) {
		t.Error("expected artifacts removed by the second poll")
	}
}

func TestPollEmpty(t *testing.T) {
	p := NewPipeline(jobs.KindMetadata, NewMemoryBuffer(), t.TempDir(), nil)
	archive, err := p.Poll(context.Background())
	if err != nil || archive != nil {
		t.Fatalf("expected nil archive and nil error, got %v, %v", archive, err)
	}
}

func TestPollGroupsByJob(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	p := NewPipeline(jobs.KindMetadata, NewMemoryBuffer(), root, nil)

	for _, id := range []string{"job-a", "job-b"} {
		dir := writeResultDir(t, root, id+"-content", map[string]string{"metadata.json": id, "media/image1.gif": "x"})
		if err := p.Publish(ctx, jobs.Result{JobID: id, Kind: jobs.KindMetadata, ContentPath: dir}); err != nil {
			t.Fatal(err)
		}
	}
	// A result whose content vanished is skipped, not fatal.
	if err := p.Publish(ctx, jobs.Result{JobID: "job-gone", Kind: jobs.KindMetadata, ContentPath: filepath.Join(root, "nope")}); err != nil {
		t.Fatal(err)
	}

	archive, err := p.Poll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	sort.Strings(archive.JobIDs)
	if len(archive.JobIDs) != 2 || archive.JobIDs[0] != "job-a" || archive.JobIDs[1] != "job-b" {
		t.Errorf("unexpected job ids %v", archive.JobIDs)
	}

	entries := zipEntries(t, archive)
	for _, name := range []string{
		"response/job-a/metadata.json",
		"response/job-a/media/image1.gif",
		"response/job-b/metadata.json",
	} {
		if _, ok := entries[name]; !ok {
			t.Errorf("missing entry %s in %v", name, entries)
		}
	}
	for name := range entries {
		if filepath.IsAbs(name) || name[:len(ArchiveRoot)] != ArchiveRoot {
			t.Errorf("entry %s leaks storage layout", name)
		}
	}
}

func TestKindsAreIndependent(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	pipes := Pipelines{
		jobs.KindAnimate:  NewPipeline(jobs.KindAnimate, NewMemoryBuffer(), root, nil),
		jobs.KindMetadata: NewPipeline(jobs.KindMetadata, NewMemoryBuffer(), root, nil),
	}

	dir := writeResultDir(t, root, "meta", map[string]string{"metadata.json": "{}"})
	if err := pipes.Publish(ctx, jobs.Result{JobID: "job-1", Kind: jobs.KindMetadata, ContentPath: dir}); err != nil {
		t.Fatal(err)
	}

	if a, err := pipes[jobs.KindAnimate].Poll(ctx); err != nil || a != nil {
		t.Fatalf("animate poll should be empty, got %v %v", a, err)
	}
	a, err := pipes[jobs.KindMetadata].Poll(ctx)
	if err != nil || a == nil {
		t.Fatalf("metadata poll should return archive, got %v %v", a, err)
	}
	a.Close()

	if err := pipes.Publish(ctx, jobs.Result{Kind: "other"}); err == nil {
		t.Error("expected error publishing unknown kind")
	}
}

func TestRetentionSweepIgnoresMissing(t *testing.T) {
	r := NewRetention()
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r.Schedule(present, filepath.Join(dir, "already-gone"))

	removed, err := r.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if exists(present) {
		t.Error("expected file removed")
	}
	if len(r.Pending()) != 0 {
		t.Error("expected nothing pending")
	}
}

func TestConcurrentPollsOfSameKind(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	p := NewPipeline(jobs.KindAnimate, NewMemoryBuffer(), root, nil)

	for i := 0; i < 10; i++ {
		dir := writeResultDir(t, root, "c"+string(rune('a'+i)), map[string]string{"f": "x"})
		if err := p.Publish(ctx, jobs.Result{JobID: "job", Kind: jobs.KindAnimate, ContentPath: dir}); err != nil {
			t.Fatal(err)
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		archives int
		packaged int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := p.Poll(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			if a != nil {
				mu.Lock()
				archives++
				packaged += len(a.JobIDs)
				mu.Unlock()
				a.Close()
			}
		}()
	}
	wg.Wait()

	if archives != 1 || packaged != 10 {
		t.Errorf("expected one archive with all 10 results, got %d archives / %d results", archives, packaged)
	}
}

func TestPollFailedResultWithoutContent(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(jobs.KindMetadata, NewMemoryBuffer(), t.TempDir(), nil)

	failed := jobs.Result{
		JobID:   "job-f",
		Kind:    jobs.KindMetadata,
		Status:  jobs.StatusFailed,
		Code:    "INTERNAL_ERROR",
		Message: "create result directory",
	}
	if err := p.Publish(ctx, failed); err != nil {
		t.Fatal(err)
	}

	archive, err := p.Poll(ctx)
	if err != nil || archive == nil {
		t.Fatalf("expected archive, got %v %v", archive, err)
	}
	defer archive.Close()

	if len(archive.JobIDs) != 1 || archive.JobIDs[0] != "job-f" {
		t.Errorf("unexpected job ids %v", archive.JobIDs)
	}
	body, ok := zipEntries(t, archive)["response/job-f/error.json"]
	if !ok {
		t.Fatal("expected error.json for the failed job")
	}
	var got jobs.Failure
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != "INTERNAL_ERROR" || got.Message != "create result directory" || got.Kind != jobs.KindMetadata {
		t.Errorf("unexpected failure %+v", got)
	}
	if pending := p.Retention().Pending(); len(pending) != 1 {
		t.Errorf("expected only the archive scheduled, got %v", pending)
	}
}

func TestPollRequeuesWhenPackagingFails(t *testing.T) {
	root := t.TempDir()
	responses := filepath.Join(root, "responses")
	ctx := context.Background()
	p := NewPipeline(jobs.KindAnimate, NewMemoryBuffer(), responses, nil)

	content := writeResultDir(t, root, "job-1", map[string]string{"slide1.gif": "gif"})
	if err := p.Publish(ctx, jobs.Result{JobID: "job-1", Kind: jobs.KindAnimate, ContentPath: content, Status: jobs.StatusDone}); err != nil {
		t.Fatal(err)
	}

	// The responses directory does not exist yet, so the archive cannot be created.
	if a, err := p.Poll(ctx); err == nil {
		a.Close()
		t.Fatal("expected poll to fail")
	}
	if n, _ := p.Ready(ctx); n != 1 {
		t.Fatalf("expected the result back in the buffer, got %d", n)
	}

	if err := os.Mkdir(responses, 0o755); err != nil {
		t.Fatal(err)
	}
	archive, err := p.Poll(ctx)
	if err != nil || archive == nil {
		t.Fatalf("expected archive after recovery, got %v %v", archive, err)
	}
	defer archive.Close()
	if _, ok := zipEntries(t, archive)["response/job-1/slide1.gif"]; !ok {
		t.Error("expected the requeued result to be delivered")
	}
}

func TestDecodeResultsSkipsCorruptEntries(t *testing.T) {
	raw := []string{
		`{"job_id":"job-1","kind":"animate","content_path":"/r/1"}`,
		`{not json`,
		`{"job_id":"job-x","kind":"render","content_path":"/r/x"}`,
		`{"job_id":"job-2","kind":"animate","content_path":"/r/2"}`,
	}
	out, err := decodeResults(raw)
	if err == nil {
		t.Error("expected the corrupt entry to be reported")
	}
	if len(out) != 2 || out[0].JobID != "job-1" || out[1].JobID != "job-2" {
		t.Errorf("expected both readable results, got %+v", out)
	}
}
