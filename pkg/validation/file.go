package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"sundey-crm/config"
	apperrors "sundey-crm/pkg/errors"
)

// ValidateFile checks size and sniffed MIME type against the rules of
// contextName in config.UploadContexts. The reader is rewound afterwards.
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, contextName string) error {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("unknown upload context '%s'", contextName)
	}

	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return apperrors.NewInvalidInputError("files", "file %s exceeds %dMB limit", fileHeader.Filename, rules.MaxSizeMB)
		}
	}

	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}

	mimeType := http.DetectContentType(buffer)
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		// DetectContentType does not know HEIC; trust the declared type for it.
		declared := fileHeader.Header.Get("Content-Type")
		if declared != "image/heic" || !slices.Contains(rules.AllowedMimeTypes, declared) {
			return apperrors.NewInvalidInputError("files", "file type %s is not allowed", mimeType)
		}
	}

	return nil
}

// IsAllowedMimeType reports whether mimeType is accepted for contextName.
func IsAllowedMimeType(contextName, mimeType string) bool {
	rules, ok := config.UploadContexts[contextName]
	return ok && slices.Contains(rules.AllowedMimeTypes, mimeType)
}
