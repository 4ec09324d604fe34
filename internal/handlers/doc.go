// Package handlers provides the HTTP API for the generation studio.
//
// It includes handlers for:
//   - Submitting, listing and dismissing generation jobs
//   - Streaming queue changes and progress as server-sent events
//   - Preprocessing and uploading reference images
//   - Reading and updating the model registry
//   - Health checks and version information
package handlers
