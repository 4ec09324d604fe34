package mediatypes

import "testing"

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".png", "image/png"},
		{".heic", "image/heic"},
		{".webp", "image/webp"},
		{".xyz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetMimeType(tt.ext); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestExtensionForMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", ".jpg"},
		{"IMAGE/PNG", ".png"},
		{"image/png; charset=binary", ".png"},
		{"image/heif", ".heif"},
		{"application/pdf", ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := ExtensionForMime(tt.mime); got != tt.want {
				t.Errorf("ExtensionForMime(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestLegacyDetection(t *testing.T) {
	for _, ext := range []string{".heic", ".HEIC", ".heif"} {
		if !IsLegacyExtension(ext) {
			t.Errorf("IsLegacyExtension(%q) = false", ext)
		}
	}
	for _, ext := range []string{".jpg", ".png", ".webp", ""} {
		if IsLegacyExtension(ext) {
			t.Errorf("IsLegacyExtension(%q) = true", ext)
		}
	}

	for _, mime := range []string{"image/heic", "Image/HEIF", "image/heic-sequence"} {
		if !IsLegacyMime(mime) {
			t.Errorf("IsLegacyMime(%q) = false", mime)
		}
	}
	for _, mime := range []string{"image/jpeg", "application/octet-stream", ""} {
		if IsLegacyMime(mime) {
			t.Errorf("IsLegacyMime(%q) = true", mime)
		}
	}
}

func TestIsImageExtension(t *testing.T) {
	if !IsImageExtension(".JPG") {
		t.Error("uppercase .JPG should be accepted")
	}
	if IsImageExtension(".mp4") {
		t.Error(".mp4 is not an image")
	}
}
