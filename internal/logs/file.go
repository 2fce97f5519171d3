package logs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileSource reads logs from a directory tree on local disk.
type FileSource struct {
	base string
}

func NewFileSource(base string) *FileSource {
	return &FileSource{base: filepath.Clean(base)}
}

func (s *FileSource) Read(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := filepath.Join(s.base, filepath.FromSlash(rel))
	within, err := filepath.Rel(s.base, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return nil, errors.Wrapf(ErrNotFound, "path %s escapes log root", rel)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "read %s", rel)
		}
		return nil, errors.Wrapf(err, "read log %s", rel)
	}
	return content, nil
}
