package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "document layout not found")

	if err == nil {
		t.Fatal("New should return non-nil error")
	}
	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
	}
	if err.Message != "document layout not found" {
		t.Errorf("Message = %v", err.Message)
	}
	if err.Underlying != nil {
		t.Error("Underlying should be nil for New error")
	}
	if len(err.Stack) == 0 {
		t.Error("Stack should be captured")
	}
	if err.Retryable {
		t.Error("Retryable should default to false")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeInvalidInput, "bad key %q", "")
	if err.Message != `bad key ""` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	underlying := errors.New("disk I/O error")
	err := Wrap(underlying, ErrCodeStorageRead, "failed to read document")

	if err.Underlying != underlying {
		t.Error("Underlying should be preserved")
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Error("Error string should include underlying error")
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see the underlying error")
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "test"); err != nil {
		t.Error("Wrap of nil should return nil")
	}
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeReviveDecode, "decode failed").
		WithContext("type", "Color").
		WithContext("offset", 12)

	if got := err.Error(); got != "[REVIVE_DECODE] decode failed {offset: 12, type: Color}" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsCodeThroughChain(t *testing.T) {
	base := New(ErrCodeBusPublish, "publish failed").WithRetryable(true)
	wrapped := fmt.Errorf("bridge: %w", base)

	if !IsCode(wrapped, ErrCodeBusPublish) {
		t.Error("IsCode should follow the wrap chain")
	}
	if IsCode(wrapped, ErrCodeBusSubscribe) {
		t.Error("IsCode should return false for other codes")
	}
	if IsCode(nil, ErrCodeBusPublish) {
		t.Error("IsCode should return false for nil")
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should follow the wrap chain")
	}
}

func TestGetCode(t *testing.T) {
	if GetCode(New(ErrCodeConfigParse, "x")) != ErrCodeConfigParse {
		t.Error("GetCode should return the code")
	}
	if GetCode(nil) != "" {
		t.Error("GetCode should return empty string for nil")
	}
	if GetCode(errors.New("standard")) != ErrCodeInternal {
		t.Error("GetCode should return ErrCodeInternal for foreign errors")
	}
}

func TestStackTrace(t *testing.T) {
	err := New(ErrCodeInternal, "test error")
	trace := err.StackTrace()

	if !strings.Contains(trace, "Stack trace:") {
		t.Error("StackTrace should contain header")
	}
	if !strings.Contains(trace, "TestStackTrace") {
		t.Errorf("StackTrace should mention the caller, got:\n%s", trace)
	}
}
