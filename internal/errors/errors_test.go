// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindNoAuthorizedKeys, "no authorized keys resolved")
	if err.Error() != "no authorized keys resolved" {
		t.Errorf("expected 'no authorized keys resolved', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindInternal, "setup failed")
	if wrapped.Error() != "setup failed: no authorized keys resolved" {
		t.Errorf("expected 'setup failed: no authorized keys resolved', got '%s'", wrapped.Error())
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindHostKey, "key generation failed")
	if GetKind(err) != KindHostKey {
		t.Errorf("expected KindHostKey, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindUnreachable, "daemon did not come up")
	if GetKind(wrapped) != KindUnreachable {
		t.Errorf("expected KindUnreachable, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindNoAuthorizedKeys, "no_authorized_keys"},
		{KindHostKey, "host_key"},
		{KindCommand, "command"},
		{KindUnreachable, "unreachable"},
		{KindState, "state"},
		{KindConfig, "config"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindCommand, "install failed")
	err = Attr(err, "step", "install")
	err = Attr(err, "exit_code", 1)

	attrs := GetAttributes(err)
	if attrs["step"] != "install" {
		t.Errorf("expected install, got %v", attrs["step"])
	}
	if attrs["exit_code"] != 1 {
		t.Errorf("expected 1, got %v", attrs["exit_code"])
	}

	wrapped := Wrap(err, KindInternal, "setup aborted")
	wrapped = Attr(wrapped, "phase", "installing")

	allAttrs := GetAttributes(wrapped)
	if allAttrs["step"] != "install" || allAttrs["phase"] != "installing" {
		t.Errorf("missing attributes: %v", allAttrs)
	}
}
