package dealroom

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationErrorJoinsViolations(t *testing.T) {
	err := NewValidationError("first", "second")
	if err.Error() != "first; second" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestConflictErrorCarriesMarker(t *testing.T) {
	err := NewConflictError("deal room already exists for project %s", "p1")
	if !strings.HasPrefix(err.Error(), "Conflict: ") {
		t.Fatalf("missing Conflict marker: %q", err.Error())
	}
}

func TestStorageErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorageError("save deal room draft", cause)
	if !strings.Contains(err.Error(), "Failed to save deal room draft data") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
}
