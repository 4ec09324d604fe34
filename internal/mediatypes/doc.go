// Package mediatypes holds the extension and MIME tables used to classify
// user-supplied images.
//
// It has no dependencies beyond the standard library so the media, upload
// and handlers packages can all import it without cycles.
//
// # Legacy formats
//
// HEIC/HEIF phone photos cannot be decoded by the resize pipeline and must
// be converted first. Detection is by name and declared MIME type only:
//
//	if mediatypes.IsLegacyExtension(ext) || mediatypes.IsLegacyMime(mime) {
//	    // convert before resizing
//	}
//
// # MIME types
//
// GetMimeType maps an extension to a MIME type and ExtensionForMime goes
// the other way, which the upload store uses to name stored blobs.
package mediatypes
