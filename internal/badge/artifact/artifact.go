// Package artifact renders badge payloads to QR PNG files.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 300

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileStore writes QR images under dir and reports them as baseURL paths.
type FileStore struct {
	dir     string
	baseURL string
	level   qrcode.RecoveryLevel
}

func NewFileStore(dir, baseURL string) *FileStore {
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		level:   qrcode.Medium,
	}
}

// Render encodes payload as a QR PNG named after the badge code and the
// issue nonce, and returns its public path.
func (s *FileStore) Render(ctx context.Context, name, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	png, err := qrcode.Encode(payload, s.level, pngSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create qr dir: %w", err)
	}
	file := unsafeChars.ReplaceAllString(name, "_") + ".png"
	if err := os.WriteFile(filepath.Join(s.dir, file), png, 0o644); err != nil {
		return "", fmt.Errorf("write qr: %w", err)
	}
	return s.baseURL + "/" + file, nil
}

// Delete removes the file behind path. Missing files are not an error.
func (s *FileStore) Delete(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	file := filepath.Base(path)
	err := os.Remove(filepath.Join(s.dir, file))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete qr: %w", err)
	}
	return nil
}

// Dir is where files are written; the HTTP layer serves it.
func (s *FileStore) Dir() string {
	return s.dir
}
