package filestorage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path under which locally stored files are served.
const PublicPrefix = "/uploads/"

type FileStorageInterface interface {
	// Save writes file under prefix and returns its slash separated path
	// relative to the storage root.
	Save(file io.Reader, originalFileName string, prefix string) (filePath string, err error)
	Delete(filePath string) error
	PublicURL(filePath string) string
}

type LocalFileStorage struct {
	basePath string
}

func NewLocalFileStorage(basePath string) (FileStorageInterface, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalFileStorage{basePath: basePath}, nil
}

func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	cleanPrefix, err := cleanRelative(prefix)
	if err != nil {
		return "", err
	}
	uniqueFileName := uuid.NewString() + strings.ToLower(filepath.Ext(originalFileName))

	fullDirPath := filepath.Join(s.basePath, filepath.FromSlash(cleanPrefix))
	if err := os.MkdirAll(fullDirPath, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(fullDirPath, uniqueFileName))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", err
	}

	return path.Join(cleanPrefix, uniqueFileName), nil
}

// Delete accepts either a relative path or a public URL. Missing files are
// not an error.
func (s *LocalFileStorage) Delete(filePath string) error {
	relative, err := cleanRelative(strings.TrimPrefix(filePath, PublicPrefix))
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(relative))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalFileStorage) PublicURL(filePath string) string {
	return PublicPrefix + strings.TrimPrefix(filePath, "/")
}

func cleanRelative(p string) (string, error) {
	cleaned := path.Clean("/" + filepath.ToSlash(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid storage path %q", p)
	}
	return cleaned, nil
}
