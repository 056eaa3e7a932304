package upload

import (
	"context"
	"encoding/base64"
	"os"
	"path"
	"path/filepath"
	"strings"

	"DMChat/module/message/model"
	"DMChat/tools/errs"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Uploader stores a raw attachment payload and returns where it can be fetched.
// Remove drops a stored attachment again; attachments it did not store are ignored.
type Uploader interface {
	Upload(ctx context.Context, data, kind string) (model.Attachment, error)
	Remove(ctx context.Context, att model.Attachment) error
}

// LocalUploader writes payloads under Dir and serves them below PublicURL.
type LocalUploader struct {
	Dir       string
	PublicURL string
	MaxBytes  int64
}

func NewLocalUploader(dir, publicURL string, maxBytes int64) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.WrapMsg(err, "create upload dir", "dir", dir)
	}
	return &LocalUploader{Dir: dir, PublicURL: strings.TrimRight(publicURL, "/"), MaxBytes: maxBytes}, nil
}

// Upload accepts a data URI ("data:image/png;base64,...") or bare base64.
// Remote http(s) URLs are kept as they are.
func (u *LocalUploader) Upload(ctx context.Context, data, kind string) (model.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return model.Attachment{}, err
	}
	kind = normalizeKind(kind)
	if strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
		return model.Attachment{URL: data, Type: kind}, nil
	}

	raw, err := decodePayload(data)
	if err != nil {
		return model.Attachment{}, errs.ErrUploadFailed.WrapMsg("decode payload", "err", err)
	}
	if len(raw) == 0 {
		return model.Attachment{}, errs.ErrUploadFailed.WrapMsg("empty payload")
	}
	if u.MaxBytes > 0 && int64(len(raw)) > u.MaxBytes {
		return model.Attachment{}, errs.ErrUploadFailed.WrapMsg("payload too large", "size", len(raw), "max", u.MaxBytes)
	}

	name := uuid.NewString() + mimetype.Detect(raw).Extension()
	if err := os.WriteFile(filepath.Join(u.Dir, name), raw, 0o644); err != nil {
		return model.Attachment{}, errs.ErrUploadFailed.WrapMsg("write file", "err", err)
	}
	return model.Attachment{URL: path.Join(u.PublicURL, name), Type: kind}, nil
}

// Remove deletes a file written by Upload. Remote URLs and paths outside
// PublicURL are left alone.
func (u *LocalUploader) Remove(_ context.Context, att model.Attachment) error {
	name, ok := att.URL, true
	if u.PublicURL != "" {
		name, ok = strings.CutPrefix(att.URL, u.PublicURL+"/")
	}
	if !ok || name == "" || strings.Contains(name, "://") || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(u.Dir, name)); err != nil && !os.IsNotExist(err) {
		return errs.WrapMsg(err, "remove upload", "url", att.URL)
	}
	return nil
}

func decodePayload(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		i := strings.IndexByte(data, ',')
		if i < 0 {
			return nil, errs.New("malformed data uri")
		}
		meta := data[len("data:"):i]
		body := data[i+1:]
		if !strings.HasSuffix(meta, ";base64") {
			return []byte(body), nil
		}
		data = body
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(data)
}

func normalizeKind(kind string) string {
	if k := strings.ToLower(strings.TrimSpace(kind)); k != "" {
		return k
	}
	return model.AttachmentFile
}
