package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/domain"
)

func TestBuildUserPatchAssignmentsUnsetWins(t *testing.T) {
	userID := uuid.New()
	patch := domain.UserPatch{
		Set:   map[string]any{"email": "new@example.com"},
		Unset: []string{"email", "wallet_id"},
	}

	assignments, args, err := buildUserPatchAssignments(userID, patch)
	if err != nil {
		t.Fatalf("buildUserPatchAssignments: %v", err)
	}

	joined := strings.Join(assignments, ", ")
	setIdx := strings.Index(joined, "email = $2")
	unsetIdx := strings.Index(joined, "email = NULL")
	if setIdx == -1 || unsetIdx == -1 {
		t.Fatalf("expected both set and unset assignments for email, got %q", joined)
	}
	if unsetIdx < setIdx {
		t.Errorf("unset must come after set so it wins, got %q", joined)
	}
	if !strings.Contains(joined, "wallet_id = NULL") {
		t.Errorf("expected wallet_id unset assignment, got %q", joined)
	}
	if !strings.HasSuffix(strings.TrimSpace(joined), "updated_at = now()") {
		t.Errorf("expected trailing updated_at assignment, got %q", joined)
	}

	if len(args) != 2 {
		t.Fatalf("expected 2 args (id + email value), got %d", len(args))
	}
	if args[0] != userID {
		t.Errorf("first arg must be the user id")
	}
	if args[1] != "new@example.com" {
		t.Errorf("second arg = %v, want email value", args[1])
	}
}

func TestBuildUserPatchAssignmentsRejectsUnknownColumns(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		name  string
		patch domain.UserPatch
	}{
		{"set username", domain.UserPatch{Set: map[string]any{"username": "hijack"}}},
		{"unset id", domain.UserPatch{Unset: []string{"id"}}},
		{"set created_at", domain.UserPatch{Set: map[string]any{"created_at": "1970-01-01"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := buildUserPatchAssignments(userID, tc.patch); !errors.Is(err, ErrInvalidPatchField) {
				t.Errorf("expected ErrInvalidPatchField, got %v", err)
			}
		})
	}
}

func TestBuildUserPatchAssignmentsEmptyPatch(t *testing.T) {
	assignments, args, err := buildUserPatchAssignments(uuid.New(), domain.UserPatch{})
	if err != nil {
		t.Fatalf("buildUserPatchAssignments: %v", err)
	}
	if len(assignments) != 1 || assignments[0] != "updated_at = now()" {
		t.Errorf("empty patch should only touch updated_at, got %v", assignments)
	}
	if len(args) != 1 {
		t.Errorf("empty patch should carry only the id arg, got %d", len(args))
	}
}
