package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorClass
	}{
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{503, ErrorClassServer},
		{200, ""},
		{304, ""},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.code); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestFetchError_Retryable(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassRateLimit, true},
		{ErrorClassNetwork, true},
		{ErrorClass(""), false},
	}

	for _, tt := range tests {
		fe := &FetchError{Class: tt.class}
		if got := fe.Retryable(); got != tt.want {
			t.Errorf("FetchError{Class: %q}.Retryable() = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestRetryable_ContextErrorsAreTerminal(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", context.Canceled)
	if retryable(wrapped) {
		t.Error("retryable(context.Canceled) = true, want false")
	}
	if retryable(context.DeadlineExceeded) {
		t.Error("retryable(context.DeadlineExceeded) = true, want false")
	}
}

func TestRetryable_UnclassifiedIsTerminal(t *testing.T) {
	if retryable(errors.New("mystery failure")) {
		t.Error("retryable(unclassified) = true, want false")
	}
}

func TestFetchError_Message(t *testing.T) {
	fe := &FetchError{
		StatusCode: 503,
		Class:      ErrorClassServer,
		Key:        "catalog:search/ajax:keyword=x",
		Attempts:   3,
		Message:    "503 Service Unavailable",
	}

	msg := fe.Error()
	for _, want := range []string{"server", "503", "after 3 attempts", "catalog:search/ajax:keyword=x"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	fe := &FetchError{Class: ErrorClassNetwork, Err: inner}
	if !errors.Is(fe, inner) {
		t.Error("errors.Is(fe, inner) = false, want unwrap to inner error")
	}
}
