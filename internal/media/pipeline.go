package media

import (
	"context"
	"errors"
	"fmt"

	"genstudio/internal/logging"
	"genstudio/internal/upload"
)

// Batch stages reported in BatchError.Stage.
const (
	StageConvert = "convert"
	StageResize  = "resize"
	StageUpload  = "upload"
)

// Prepared is a file that went through conversion and resizing.
type Prepared struct {
	File         File
	Converted    bool
	Resized      bool
	OriginalSize int64
	Quality      int
}

// UploadedImage is one successfully processed batch entry.
type UploadedImage struct {
	Name         string `json:"name"`
	ImageURL     string `json:"imageUrl"`
	Converted    bool   `json:"converted"`
	Resized      bool   `json:"resized"`
	OriginalSize int64  `json:"originalSize"`
	FinalSize    int64  `json:"finalSize"`
}

// BatchError is one skipped batch entry.
type BatchError struct {
	Name    string `json:"name"`
	Stage   string `json:"stage"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// BatchResult collects the outcome of a batch. Uploaded keeps input order.
type BatchResult struct {
	Uploaded []UploadedImage `json:"uploaded"`
	Errors   []BatchError    `json:"errors,omitempty"`
}

// URLs returns the uploaded image URLs in order.
func (r BatchResult) URLs() []string {
	urls := make([]string, 0, len(r.Uploaded))
	for _, u := range r.Uploaded {
		urls = append(urls, u.ImageURL)
	}
	return urls
}

// Pipeline runs conversion, resizing and upload for reference images.
type Pipeline struct {
	prep      *Preprocessor
	converter Converter
	uploader  upload.Client
}

// NewPipeline wires a pipeline. uploader may be nil when only Prepare is used.
func NewPipeline(prep *Preprocessor, converter Converter, uploader upload.Client) *Pipeline {
	if prep == nil {
		prep = NewPreprocessor()
	}
	return &Pipeline{prep: prep, converter: converter, uploader: uploader}
}

// Prepare converts and resizes one file without uploading it.
func (p *Pipeline) Prepare(ctx context.Context, f File) (*Prepared, error) {
	converted, err := ConvertLegacyToStandard(ctx, p.converter, f)
	if err != nil {
		return nil, err
	}

	res, err := p.prep.ResizeIfNeeded(ctx, converted)
	if err != nil {
		return nil, err
	}

	return &Prepared{
		File:         res.File,
		Converted:    IsLegacyFormat(f),
		Resized:      res.Resized,
		OriginalSize: f.Size(),
		Quality:      res.Quality,
	}, nil
}

// Process handles files one at a time, in order. A failing file is recorded
// and skipped; the rest of the batch still runs. Only context cancellation
// stops the batch early, and every file not yet processed is then reported.
func (p *Pipeline) Process(ctx context.Context, files []File) BatchResult {
	result, _ := p.run(ctx, files, false)
	return result
}

// Assemble prepares and uploads the reference images of a generation
// request. Conversion and resize failures skip the file as in Process, but
// an upload failure stops the batch and is returned: the request cannot be
// assembled without it.
func (p *Pipeline) Assemble(ctx context.Context, files []File) (BatchResult, error) {
	return p.run(ctx, files, true)
}

func (p *Pipeline) run(ctx context.Context, files []File, stopOnUpload bool) (BatchResult, error) {
	var result BatchResult

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			for _, rest := range files[i:] {
				result.Errors = append(result.Errors, newBatchError(rest.Name, StageConvert, err))
			}
			break
		}

		prepared, err := p.Prepare(ctx, f)
		if err != nil {
			stage := StageResize
			var convErr *ConversionError
			if errors.As(err, &convErr) {
				stage = StageConvert
			}
			logging.Warn("Skipping %s: %v", f.Name, err)
			result.Errors = append(result.Errors, newBatchError(f.Name, stage, err))
			continue
		}

		url, err := p.upload(ctx, prepared.File)
		if err != nil {
			logging.Warn("Upload of %s failed: %v", f.Name, err)
			result.Errors = append(result.Errors, newBatchError(f.Name, StageUpload, err))
			if stopOnUpload {
				return result, fmt.Errorf("upload %s: %w", f.Name, err)
			}
			continue
		}

		result.Uploaded = append(result.Uploaded, UploadedImage{
			Name:         f.Name,
			ImageURL:     url,
			Converted:    prepared.Converted,
			Resized:      prepared.Resized,
			OriginalSize: prepared.OriginalSize,
			FinalSize:    prepared.File.Size(),
		})
	}

	logging.Debug("Batch finished: %d uploaded, %d failed", len(result.Uploaded), len(result.Errors))
	return result, nil
}

func (p *Pipeline) upload(ctx context.Context, f File) (string, error) {
	if p.uploader == nil {
		return "", errors.New("no upload client configured")
	}
	res, err := p.uploader.Upload(ctx, upload.Blob{Name: f.Name, MimeType: f.MimeType, Data: f.Data})
	if err == nil && (res == nil || res.ImageURL == "") {
		err = errors.New("upload returned no image URL")
	}
	if o := observe(); o != nil {
		o.ObserveUpload(err)
	}
	if err != nil {
		return "", err
	}
	return res.ImageURL, nil
}

func newBatchError(name, stage string, err error) BatchError {
	return BatchError{Name: name, Stage: stage, Message: err.Error(), Err: err}
}
