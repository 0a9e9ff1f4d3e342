package connector

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsFatal(t *testing.T) {
	base := errors.New("boom")

	if IsFatal(NewTransient("dial", base)) {
		t.Error("transient classified as fatal")
	}
	if !IsFatal(NewFatal("login", base)) {
		t.Error("fatal not classified as fatal")
	}
	if IsFatal(base) {
		t.Error("unclassified error must default to transient")
	}
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}

	wrapped := fmt.Errorf("cycle failed: %w", NewFatal("select", base))
	if !IsFatal(wrapped) {
		t.Error("classification must survive wrapping")
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")

	if !IsTransient(NewTransient("dial", base)) {
		t.Error("transient not classified as transient")
	}
	if IsTransient(NewFatal("login", base)) {
		t.Error("fatal classified as transient")
	}
	if IsTransient(base) {
		t.Error("unclassified error must not report transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}

	wrapped := fmt.Errorf("cycle failed: %w", NewTransient("fetch", base))
	if !IsTransient(wrapped) {
		t.Error("classification must survive wrapping")
	}
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewTransient("search", base)
	if !errors.Is(err, base) {
		t.Error("Unwrap must expose the cause")
	}
	if got := err.Error(); got != "connector: search: boom" {
		t.Errorf("Error() = %q", got)
	}
}
