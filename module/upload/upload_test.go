package upload

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DMChat/module/message/model"
	"DMChat/tools/errs"
)

// smallest valid PNG header is enough for content sniffing
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newUploader(t *testing.T, max int64) *LocalUploader {
	t.Helper()
	u, err := NewLocalUploader(filepath.Join(t.TempDir(), "up"), "/uploads/", max)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestUploadDataURI(t *testing.T) {
	u := newUploader(t, 0)
	data := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	att, err := u.Upload(context.Background(), data, "image")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if att.Type != "image" || !strings.HasPrefix(att.URL, "/uploads/") || !strings.HasSuffix(att.URL, ".png") {
		t.Errorf("attachment = %+v", att)
	}
	stored, err := os.ReadFile(filepath.Join(u.Dir, strings.TrimPrefix(att.URL, "/uploads/")))
	if err != nil || string(stored) != string(pngBytes) {
		t.Errorf("stored file mismatch: %v", err)
	}
}

func TestUploadVariants(t *testing.T) {
	u := newUploader(t, 8)
	ctx := context.Background()

	att, err := u.Upload(ctx, base64.StdEncoding.EncodeToString([]byte("hello")), "")
	if err != nil || att.Type != "file" {
		t.Errorf("bare base64: %+v %v", att, err)
	}

	att, err = u.Upload(ctx, "https://cdn.example.com/a.mp4", "video")
	if err != nil || att.URL != "https://cdn.example.com/a.mp4" {
		t.Errorf("remote url: %+v %v", att, err)
	}

	_, err = u.Upload(ctx, base64.StdEncoding.EncodeToString([]byte("much too large")), "file")
	if ce, ok := errs.As(err); !ok || ce.Code != errs.ServerInternalError {
		t.Errorf("oversize: %v", err)
	}

	if _, err := u.Upload(ctx, "data:image/png;base64,@@@", "image"); err == nil {
		t.Error("garbage payload must fail")
	}
	if _, err := u.Upload(ctx, "data:nocomma", "image"); err == nil {
		t.Error("malformed data uri must fail")
	}
}

func TestRemove(t *testing.T) {
	u := newUploader(t, 0)
	ctx := context.Background()

	att, err := u.Upload(ctx, base64.StdEncoding.EncodeToString(pngBytes), "image")
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(u.Dir, strings.TrimPrefix(att.URL, "/uploads/"))
	if err := u.Remove(ctx, att); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	// second remove and foreign urls are no-ops
	for _, url := range []string{att.URL, "https://cdn.example.com/a.png", "/uploads/../secret", "/elsewhere/x"} {
		if err := u.Remove(ctx, model.Attachment{URL: url}); err != nil {
			t.Errorf("Remove(%q): %v", url, err)
		}
	}
}
