// Package media turns arbitrary user-supplied images into upload-ready blobs.
//
// The pipeline for one file is:
//   - legacy check: HEIC/HEIF (by extension or declared MIME) is converted
//     to PNG through libvips
//   - resize: files over SizeBudget are decoded, scaled so the longer side
//     is at most MaxDimension, and re-encoded as JPEG with a quality
//     back-off from 0.85 down to 0.55 in steps of 0.10
//   - upload: the finished blob is handed to an upload.Client
//
// The resize step is best effort: if the lowest quality is still over
// budget the last attempt is returned anyway.
//
// Pipeline.Process runs that sequence for every file of a batch in order.
// A file that fails is reported in BatchResult.Errors and the batch
// carries on with the next one.
package media
