// Package errors provides the classified error primitives shared by ulyssesdeck.
//
// A ClassifiedError carries a category (where it came from), a severity (how bad
// it is for the current rebuild pass) and free-form context. The flatten pipeline
// relies on categories to decide whether a failure only drops one member or has
// to abort the whole pass.
//
// Example usage:
//
//	err := errors.WrapError(readErr, errors.CategoryFileSystem, "failed to read sheet").
//		WithContext("path", path).
//		Build()
package errors
