package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/paperplane/internal/apperror"
)

func newTestUserService(t *testing.T) (*UserService, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	return NewUserService(db, db, testLogger()), db
}

func TestUpdateUsername_Success(t *testing.T) {
	svc, db := newTestUserService(t)
	alice := seedUser(t, db, "k1", "alice")

	profile, err := svc.UpdateUsername(context.Background(), alice.ID, "  alicia ")
	if err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	if profile.Username != "alicia" {
		t.Errorf("profile.Username = %q, want %q", profile.Username, "alicia")
	}
	if db.users[alice.ID].Username != "alicia" {
		t.Error("new username was not persisted")
	}
}

// Renaming to a name someone else holds fails and leaves the caller as is.
func TestUpdateUsername_TakenIsConflict(t *testing.T) {
	svc, db := newTestUserService(t)
	alice := seedUser(t, db, "k1", "alice")
	seedUser(t, db, "k2", "bob")

	_, err := svc.UpdateUsername(context.Background(), alice.ID, "bob")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateUsername() error = %v, want ErrConflict", err)
	}
	if got := db.users[alice.ID].Username; got != "alice" {
		t.Errorf("username = %q after conflict, want %q", got, "alice")
	}
}

func TestUpdateUsername_OwnNameIsConflict(t *testing.T) {
	svc, db := newTestUserService(t)
	alice := seedUser(t, db, "k1", "alice")

	if _, err := svc.UpdateUsername(context.Background(), alice.ID, "alice"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("UpdateUsername() error = %v, want ErrConflict", err)
	}
}

func TestUpdateUsername_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	if _, err := svc.UpdateUsername(context.Background(), 42, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUsername() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUsername_Validation(t *testing.T) {
	svc, db := newTestUserService(t)
	alice := seedUser(t, db, "k1", "alice")

	for _, name := range []string{"", "   ", strings.Repeat("n", MaxUsernameLength+1)} {
		if _, err := svc.UpdateUsername(context.Background(), alice.ID, name); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("UpdateUsername(%q) error = %v, want ErrValidation", name, err)
		}
	}
	// Length is counted in characters, not bytes.
	if _, err := svc.UpdateUsername(context.Background(), alice.ID, strings.Repeat("한", MaxUsernameLength)); err != nil {
		t.Errorf("UpdateUsername(30 Hangul) error = %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	svc, db := newTestUserService(t)
	alice := seedUser(t, db, "k1", "alice")
	u := db.users[alice.ID]
	u.ProfileImage = "https://img.test/alice.png"
	u.Points = 300
	db.users[alice.ID] = u

	profile, err := svc.GetProfile(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.Username != "alice" || profile.ProfileImage != "https://img.test/alice.png" || profile.Points != 300 {
		t.Errorf("profile = %+v", profile)
	}

	if _, err := svc.GetProfile(context.Background(), 999); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfile(999) error = %v, want ErrNotFound", err)
	}
}
