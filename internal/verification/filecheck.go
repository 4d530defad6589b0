package verification

import (
	"bytes"
	"path"
	"strings"

	dErrors "reunion/pkg/domain-errors"
)

// MaxFileSize caps identity-document uploads at 5 MiB.
const MaxFileSize = 5 << 20

// Upload rejections. Package-level so callers and tests can branch with
// errors.Is; all are non-retryable without correcting the input.
var (
	ErrInvalidFileType    = dErrors.New(dErrors.CodeValidation, "unsupported file type, only JPEG, PNG, and PDF are allowed")
	ErrFileTooLarge       = dErrors.New(dErrors.CodeValidation, "file size exceeds the 5 MiB limit")
	ErrInvalidFileContent = dErrors.New(dErrors.CodeValidation, "file content does not match the declared type")
)

// magicNumbers maps each accepted mime type to the signature its first
// bytes must carry. image/jpg is a legacy alias some clients still send.
var magicNumbers = map[string][]byte{
	"image/jpeg":      {0xFF, 0xD8, 0xFF},
	"image/jpg":       {0xFF, 0xD8, 0xFF},
	"image/png":       {0x89, 0x50, 0x4E, 0x47},
	"application/pdf": {0x25, 0x50, 0x44, 0x46},
}

// validateUpload enforces the declared type allowlist, the size cap, and
// the magic-number match between declared type and actual content.
func validateUpload(data []byte, mimeType string) error {
	signature, ok := magicNumbers[mimeType]
	if !ok {
		return ErrInvalidFileType
	}
	if len(data) > MaxFileSize {
		return ErrFileTooLarge
	}
	if !bytes.HasPrefix(data, signature) {
		return ErrInvalidFileContent
	}
	return nil
}

// fileExtension returns the lowercase extension of filename including the
// dot, empty when there is none.
func fileExtension(filename string) string {
	return strings.ToLower(path.Ext(path.Base(filename)))
}
