package metadata

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIDToInode(t *testing.T) {
	tests := []struct {
		name string
		id   uuid.UUID
	}{
		{name: "random id", id: uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")},
		{name: "another id", id: uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := IDToInode(tt.id)
			second := IDToInode(tt.id)
			if first != second {
				t.Errorf("IDToInode() not deterministic: %d != %d", first, second)
			}
			if first == 0 {
				t.Error("IDToInode() returned 0 for a non-nil id")
			}
		})
	}

	if got := IDToInode(uuid.Nil); got != 0 {
		t.Errorf("IDToInode(Nil) = %d, want 0", got)
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	got, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if got != id {
		t.Errorf("ParseID() = %s, want %s", got, id)
	}

	_, err = ParseID("not-a-uuid")
	if CodeOf(err) != ErrInvalidHandle {
		t.Errorf("ParseID(invalid) code = %v, want ErrInvalidHandle", CodeOf(err))
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode ErrorCode
	}{
		{name: "plain name", input: "file.txt"},
		{name: "empty", input: "", wantCode: ErrInvalidArgument},
		{name: "dot", input: ".", wantCode: ErrInvalidArgument},
		{name: "dotdot", input: "..", wantCode: ErrInvalidArgument},
		{name: "slash", input: "a/b", wantCode: ErrInvalidArgument},
		{name: "nul", input: "a\x00b", wantCode: ErrInvalidArgument},
		{name: "too long", input: strings.Repeat("x", MaxNameLength+1), wantCode: ErrNameTooLong},
		{name: "max length", input: strings.Repeat("x", MaxNameLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if got := CodeOf(err); got != tt.wantCode {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, got, tt.wantCode)
			}
		})
	}
}

func TestStoreErrorIs(t *testing.T) {
	err := NotFound("missing", "a")
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false, want true")
	}
	if CodeOf(AlreadyExists("a")) != ErrAlreadyExists {
		t.Error("AlreadyExists() has wrong code")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("Error() = %q, want message included", err.Error())
	}
}
