package media

import (
	"path/filepath"
	"strings"

	"genstudio/internal/mediatypes"
)

// File is an in-memory image as the user supplied it.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// NewFile builds a File, deriving the MIME type from the name when none was
// declared.
func NewFile(name, mimeType string, data []byte) File {
	mimeType = mediatypes.NormalizeMime(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mediatypes.GetMimeType(strings.ToLower(filepath.Ext(name)))
	}
	return File{Name: name, MimeType: mimeType, Data: data}
}

// Size is the byte length of the file.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Ext is the lowercased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// withExt returns name with its extension replaced.
func withExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + ext
}

// IsLegacyFormat reports whether the file is a HEIC/HEIF container. Only the
// name and declared MIME type are consulted, never the bytes.
func IsLegacyFormat(f File) bool {
	return mediatypes.IsLegacyExtension(f.Ext()) || mediatypes.IsLegacyMime(f.MimeType)
}
