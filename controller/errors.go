package controller

import (
	"errors"
	"fmt"
)

var (
	ErrBusy        = errors.New("controller: an exchange or priming run is in flight")
	ErrNotReady    = errors.New("controller: sessions are not loaded")
	ErrNoModels    = errors.New("controller: inference server has no installed models")
	ErrNoModel     = errors.New("controller: no model selected")
	ErrInvalidRoot = errors.New("controller: priming root is not a directory")
	ErrNotText     = errors.New("controller: file is not UTF-8 text")
)

// FileReadError reports a file that could not be read during priming.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("controller: read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// PrimeError aggregates the per-file failures of one priming run. Last is
// the most recent failure.
type PrimeError struct {
	Failed int
	Sent   int
	Last   error
}

func (e *PrimeError) Error() string {
	return fmt.Sprintf("controller: priming failed for %d files (%d sent): %v", e.Failed, e.Sent, e.Last)
}

func (e *PrimeError) Unwrap() error { return e.Last }
