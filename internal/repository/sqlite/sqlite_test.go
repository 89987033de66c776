package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives each test its own throwaway database. New runs the real
// migrations, so these tests also cover the schema.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, kakaoID, username string) *model.User {
	t.Helper()
	u := &model.User{
		KakaoID:  kakaoID,
		Email:    username + "@example.com",
		Username: username,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestIdea(t *testing.T, db *DB, ownerID int64, title string, category model.Category, tags ...string) *model.Idea {
	t.Helper()
	idea := &model.Idea{
		OwnerID:     ownerID,
		Title:       title,
		Category:    category,
		Description: "about " + title,
		Tags:        tags,
		Price:       100,
	}
	if err := db.CreateIdea(context.Background(), idea); err != nil {
		t.Fatalf("failed to create test idea: %v", err)
	}
	return idea
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)

	// A second run finds nothing to do (migrate.ErrNoChange is swallowed).
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var created *model.User
	err := db.InTx(ctx, func(ctx context.Context) error {
		created = &model.User{KakaoID: "k1", Username: "committed"}
		return db.CreateUser(ctx, created)
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	if _, err := db.GetUserByID(ctx, created.ID); err != nil {
		t.Errorf("user not visible after commit: %v", err)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(ctx context.Context) error {
		if err := db.CreateUser(ctx, &model.User{KakaoID: "k1", Username: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want %v", err, boom)
	}

	exists, err := db.ExistsByUsername(ctx, "ghost")
	if err != nil {
		t.Fatalf("ExistsByUsername() error = %v", err)
	}
	if exists {
		t.Error("user written inside a failed transaction was not rolled back")
	}
}

func TestInTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("InTx() swallowed the panic")
			}
		}()
		_ = db.InTx(ctx, func(ctx context.Context) error {
			_ = db.CreateUser(ctx, &model.User{KakaoID: "k1", Username: "panicky"})
			panic("boom")
		})
	}()

	exists, _ := db.ExistsByUsername(ctx, "panicky")
	if exists {
		t.Error("user written before a panic was not rolled back")
	}
}

func TestInTx_NestedJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.InTx(ctx, func(ctx context.Context) error {
		return db.InTx(ctx, func(ctx context.Context) error {
			return db.CreateUser(ctx, &model.User{KakaoID: "k1", Username: "nested"})
		})
	})
	if err != nil {
		t.Fatalf("nested InTx() error = %v", err)
	}
	if exists, _ := db.ExistsByUsername(ctx, "nested"); !exists {
		t.Error("nested write was not committed")
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":   "plain",
		"50%":     `50\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsUniqueViolation_IgnoresOtherErrors(t *testing.T) {
	if isUniqueViolation(errors.New("UNIQUE constraint failed: users.username"), "") {
		t.Error("plain errors must not be treated as driver constraint errors")
	}
	if isUniqueViolation(apperror.NotFound("user", "id", 1), "") {
		t.Error("apperror must not be treated as a constraint error")
	}
}
