// Package apperrors defines the error taxonomy shared by the audio
// pipeline. Callers classify failures with errors.Is / errors.As
// instead of string matching.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable indicates the requested audio device could not be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrAlreadyRecording indicates a recording session is already active.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrFileNotFound indicates the referenced audio file does not exist.
	ErrFileNotFound = errors.New("audio file not found")
	// ErrRateLimited indicates the remote API rejected the request due to
	// rate limiting. Retrying is a caller concern.
	ErrRateLimited = errors.New("rate limit reached")
	// ErrTimeout indicates the remote API call did not complete in time.
	ErrTimeout = errors.New("request timed out")
)

// RemoteAPIError carries the provider's error message for display to the user.
type RemoteAPIError struct {
	Message string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote API error: %s", e.Message)
}

// CacheIOError wraps a failure reading or writing the transcript cache.
type CacheIOError struct {
	Op  string
	Err error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("transcript cache %s failed: %v", e.Op, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }

// EncodingBackendError indicates the encoding backend (library or
// external process) failed or is unavailable.
type EncodingBackendError struct {
	Backend string
	Message string
	Err     error
}

func (e *EncodingBackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s encoder: %s: %v", e.Backend, e.Message, e.Err)
	}
	return fmt.Sprintf("%s encoder: %s", e.Backend, e.Message)
}

func (e *EncodingBackendError) Unwrap() error { return e.Err }

// UnexpectedError wraps failures that fit no other category.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }
