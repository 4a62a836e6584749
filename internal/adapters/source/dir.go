package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// DirSource reads raw emails from a directory of .txt or .eml files. The
// file name (without extension) is the message id. Listing is re-readable:
// every call re-enumerates the directory so the same id always yields the
// same bytes.
type DirSource struct {
	dir    string
	logger *zap.Logger
}

// NewDirSource creates an email source over the given directory.
func NewDirSource(dir string, logger *zap.Logger) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open email directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("email source path is not a directory: %s", dir)
	}
	return &DirSource{dir: dir, logger: logger}, nil
}

// List enumerates every message in the directory in file-name order.
func (s *DirSource) List(ctx context.Context) ([]core.RawEmail, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read email directory: %w", err)
	}

	var emails []core.RawEmail
	for _, entry := range entries {
		if entry.IsDir() || !isEmailFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		email, err := s.read(entry.Name())
		if err != nil {
			return nil, err
		}
		emails = append(emails, *email)
	}

	sort.Slice(emails, func(i, j int) bool { return emails[i].ID < emails[j].ID })

	s.logger.Debug("Listed email directory",
		zap.String("dir", s.dir),
		zap.Int("count", len(emails)))
	return emails, nil
}

// Get retrieves a single message by id.
func (s *DirSource) Get(ctx context.Context, id string) (*core.RawEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{".txt", ".eml"} {
		email, err := s.read(id + ext)
		if err == nil {
			return email, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, core.ErrNotFound
}

func (s *DirSource) read(name string) (*core.RawEmail, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &core.RawEmail{
		ID:         strings.TrimSuffix(name, filepath.Ext(name)),
		Data:       data,
		ReceivedAt: info.ModTime(),
	}, nil
}

func isEmailFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".eml":
		return true
	}
	return false
}

var _ core.EmailSource = (*DirSource)(nil)
