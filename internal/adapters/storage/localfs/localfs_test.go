package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagemotion/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := New(root)

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey: "job-1/slide1.png",
		Reader:    strings.NewReader("png bytes"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "job-1/slide1.png" || out.Size != 9 {
		t.Errorf("unexpected output %+v", out)
	}

	rc, contentType, size, err := fs.GetObject(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png bytes" || size != 9 {
		t.Errorf("got %q (%d bytes)", data, size)
	}
	if contentType != "image/png" {
		t.Errorf("content type = %q", contentType)
	}

	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "job-1")); !os.IsNotExist(err) {
		t.Errorf("expected empty job directory to be removed, stat err = %v", err)
	}
	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Errorf("deleting a missing object should succeed, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	fs := New(t.TempDir())
	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		_, err := fs.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		if err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestProvider(t *testing.T) {
	if got := New(t.TempDir()).Provider(); got != "localfs" {
		t.Errorf("Provider() = %q", got)
	}
}
