package filestore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

// PhotoStore keeps showcase photo blobs under the uploads directory, named
// showcase_<timestamp>_<token><ext>. The deal room record only references
// the filename.
type PhotoStore struct {
	fs    afero.Fs
	dir   string
	clock func() time.Time
}

// NewPhotoStore constructs a PhotoStore rooted at cfg.UploadsDir.
func NewPhotoStore(cfg Config) (*PhotoStore, error) {
	if cfg.UploadsDir == "" {
		return nil, dealroom.NewValidationError("uploads directory is required")
	}
	cfg = cfg.withDefaults()
	cfg.Logger.Info("photo store initialized", zap.String("uploads_dir", cfg.UploadsDir))

	return &PhotoStore{
		fs:    cfg.Fs,
		dir:   cfg.UploadsDir,
		clock: cfg.Clock,
	}, nil
}

// Save writes the blob and returns its metadata record.
func (s *PhotoStore) Save(ctx context.Context, content []byte, originalName, mimeType string) (dealroom.ShowcasePhoto, error) {
	now := s.clock().UTC()
	filename := fmt.Sprintf("showcase_%d_%s%s", now.UnixMilli(), dealroom.RandomToken(8), photoExtension(originalName, mimeType))

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return dealroom.ShowcasePhoto{}, dealroom.NewStorageError("save showcase photo", err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, filename), content, 0o644); err != nil {
		return dealroom.ShowcasePhoto{}, dealroom.NewStorageError("save showcase photo", err)
	}

	return dealroom.ShowcasePhoto{
		Filename:     filename,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         int64(len(content)),
		UploadedAt:   now,
	}, nil
}

// Delete removes the blob; a file that is already gone is not an error.
func (s *PhotoStore) Delete(ctx context.Context, filename string) error {
	err := s.fs.Remove(s.Path(filename))
	if err != nil && !os.IsNotExist(err) {
		return dealroom.NewStorageError("delete showcase photo", err)
	}
	return nil
}

// Read returns the blob content.
func (s *PhotoStore) Read(ctx context.Context, filename string) ([]byte, error) {
	content, err := afero.ReadFile(s.fs, s.Path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dealroom.NewNotFoundError("showcase photo file %s not found", filename)
		}
		return nil, dealroom.NewStorageError("read showcase photo", err)
	}
	return content, nil
}

// Path returns the on-disk location for a stored filename. The filename is
// reduced to its base name so record data can never escape the uploads
// directory.
func (s *PhotoStore) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

func photoExtension(originalName, mimeType string) string {
	if ext := filepath.Ext(originalName); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
