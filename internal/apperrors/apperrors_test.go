package apperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("opening stream: %w", ErrDeviceUnavailable)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Error("Expected wrapped sentinel to match")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("Expected no cross-match between sentinels")
	}
}

func TestCacheIOErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &CacheIOError{Op: "write", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Expected Unwrap to expose inner error")
	}
	if !strings.Contains(err.Error(), "write") {
		t.Errorf("Expected op in message, got %q", err.Error())
	}

	var target *CacheIOError
	wrapped := fmt.Errorf("lookup: %w", err)
	if !errors.As(wrapped, &target) || target.Op != "write" {
		t.Error("Expected errors.As to find CacheIOError")
	}
}

func TestEncodingBackendErrorMessage(t *testing.T) {
	withCause := &EncodingBackendError{Backend: "ffmpeg", Message: "exited 1", Err: errors.New("stderr tail")}
	if !strings.Contains(withCause.Error(), "ffmpeg") || !strings.Contains(withCause.Error(), "stderr tail") {
		t.Errorf("Unexpected message: %q", withCause.Error())
	}

	withoutCause := &EncodingBackendError{Backend: "resample", Message: "bad input"}
	if !strings.Contains(withoutCause.Error(), "resample encoder: bad input") {
		t.Errorf("Unexpected message: %q", withoutCause.Error())
	}
}

func TestRemoteAPIError(t *testing.T) {
	err := &RemoteAPIError{Message: "invalid model"}
	if !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestUnexpectedErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &UnexpectedError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Expected Unwrap to expose inner error")
	}
}
