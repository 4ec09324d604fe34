package mediatypes

import "strings"

// ImageExtensions maps file extensions to whether they are accepted as
// reference images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// LegacyExtensions are phone-camera containers that need conversion.
var LegacyExtensions = map[string]bool{
	".heic": true,
	".heif": true,
}

// LegacyMimeTypes are the declared MIME types of the legacy containers.
var LegacyMimeTypes = map[string]bool{
	"image/heic":          true,
	"image/heif":          true,
	"image/heic-sequence": true,
	"image/heif-sequence": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// canonicalExtensions picks one extension per MIME type.
var canonicalExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
	"image/tiff": ".tiff",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// NormalizeMime lowercases a MIME type and drops parameters.
func NormalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i != -1 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ExtensionForMime returns the canonical extension for a MIME type, or
// ".bin" when unknown.
func ExtensionForMime(mime string) string {
	if ext, ok := canonicalExtensions[NormalizeMime(mime)]; ok {
		return ext
	}
	return ".bin"
}

// IsImageExtension reports whether ext is an accepted image extension.
func IsImageExtension(ext string) bool {
	return ImageExtensions[strings.ToLower(ext)]
}

// IsLegacyExtension reports whether ext names a legacy container.
func IsLegacyExtension(ext string) bool {
	return LegacyExtensions[strings.ToLower(ext)]
}

// IsLegacyMime reports whether mime names a legacy container.
func IsLegacyMime(mime string) bool {
	return LegacyMimeTypes[NormalizeMime(mime)]
}
