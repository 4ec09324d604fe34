// Package generation describes what a generation request looks like and how
// the outcome of a generate call is classified.
//
// A Request carries the prompt, the model identifier, optional reference
// image URLs and a single Options struct holding aspect ratio, resolution and
// output format. Generator is the boundary to the remote generation service;
// HTTPGenerator is the production implementation.
//
// Classify reduces a (response, error) pair to an Outcome so callers only
// deal with Succeeded or Failed(reason).
package generation
