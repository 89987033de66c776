package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/paperplane/internal/apperror"
	"github.com/sakif/paperplane/internal/model"
	"github.com/sakif/paperplane/internal/storage"
)

// fakeDB is an in-memory stand-in for the SQLite repository. It implements
// every repository interface plus Transactor: InTx snapshots the maps and
// restores them when fn fails, which is enough to check that a failed
// operation leaves nothing behind.
type fakeDB struct {
	users     map[int64]model.User
	ideas     map[int64]model.Idea
	purchases map[[2]int64]bool
	nextUser  int64
	nextIdea  int64
	clock     time.Time

	txCount int
	// set to a non-nil error to simulate a database failure
	createIdeaErr error
	existsErr     error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     make(map[int64]model.User),
		ideas:     make(map[int64]model.Idea),
		purchases: make(map[[2]int64]bool),
		clock:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDB) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeDB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCount++
	users := make(map[int64]model.User, len(f.users))
	for k, v := range f.users {
		users[k] = v
	}
	ideas := make(map[int64]model.Idea, len(f.ideas))
	for k, v := range f.ideas {
		ideas[k] = v
	}
	purchases := make(map[[2]int64]bool, len(f.purchases))
	for k, v := range f.purchases {
		purchases[k] = v
	}

	if err := fn(ctx); err != nil {
		f.users, f.ideas, f.purchases = users, ideas, purchases
		return err
	}
	return nil
}

// --- users ---

func (f *fakeDB) CreateUser(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", "username", u.Username)
		}
		if existing.KakaoID == u.KakaoID {
			return apperror.Conflict("user", "kakaoId", u.KakaoID)
		}
	}
	f.nextUser++
	u.ID = f.nextUser
	u.CreatedAt = f.tick()
	u.UpdatedAt = u.CreatedAt
	f.users[u.ID] = *u
	return nil
}

func (f *fakeDB) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", "id", id)
	}
	return &u, nil
}

func (f *fakeDB) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", "username", username)
}

func (f *fakeDB) GetUserByKakaoID(_ context.Context, kakaoID string) (*model.User, error) {
	for _, u := range f.users {
		if u.KakaoID == kakaoID {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", "kakaoId", kakaoID)
}

func (f *fakeDB) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) UpdateUser(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", "id", u.ID)
	}
	for id, existing := range f.users {
		if id != u.ID && existing.Username == u.Username {
			return apperror.Conflict("user", "username", u.Username)
		}
	}
	u.UpdatedAt = f.tick()
	f.users[u.ID] = *u
	return nil
}

// --- ideas ---

func (f *fakeDB) CreateIdea(_ context.Context, idea *model.Idea) error {
	if f.createIdeaErr != nil {
		return f.createIdeaErr
	}
	if _, ok := f.users[idea.OwnerID]; !ok {
		return errors.New("FOREIGN KEY constraint failed")
	}
	f.nextIdea++
	idea.ID = f.nextIdea
	idea.CreatedAt = f.tick()
	idea.UpdatedAt = idea.CreatedAt
	f.ideas[idea.ID] = *idea
	return nil
}

func (f *fakeDB) GetIdeaByID(_ context.Context, id int64) (*model.Idea, error) {
	idea, ok := f.ideas[id]
	if !ok {
		return nil, apperror.NotFound("idea", "id", id)
	}
	return &idea, nil
}

func (f *fakeDB) filter(keep func(model.Idea) bool) []model.Idea {
	out := make([]model.Idea, 0)
	for _, idea := range f.ideas {
		if keep(idea) {
			out = append(out, idea)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeDB) ListIdeas(_ context.Context) ([]model.Idea, error) {
	return f.filter(func(model.Idea) bool { return true }), nil
}

func (f *fakeDB) ListIdeasByCategory(_ context.Context, c model.Category) ([]model.Idea, error) {
	return f.filter(func(i model.Idea) bool { return i.Category == c }), nil
}

func (f *fakeDB) ListIdeasByOwner(_ context.Context, ownerID int64) ([]model.Idea, error) {
	return f.filter(func(i model.Idea) bool { return i.OwnerID == ownerID }), nil
}

func (f *fakeDB) SearchIdeas(_ context.Context, keyword string) ([]model.Idea, error) {
	kw := strings.ToLower(keyword)
	return f.filter(func(i model.Idea) bool {
		if strings.Contains(strings.ToLower(i.Title), kw) || strings.Contains(strings.ToLower(i.Description), kw) {
			return true
		}
		for _, t := range i.Tags {
			if strings.Contains(strings.ToLower(t), kw) {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeDB) ListIdeasByFileURL(_ context.Context, fileURL string) ([]model.Idea, error) {
	return f.filter(func(i model.Idea) bool { return i.FileURL != nil && *i.FileURL == fileURL }), nil
}

func (f *fakeDB) UpdateIdea(_ context.Context, idea *model.Idea) error {
	if _, ok := f.ideas[idea.ID]; !ok {
		return apperror.NotFound("idea", "id", idea.ID)
	}
	idea.UpdatedAt = f.tick()
	f.ideas[idea.ID] = *idea
	return nil
}

func (f *fakeDB) DeleteIdea(_ context.Context, id int64) error {
	if _, ok := f.ideas[id]; !ok {
		return apperror.NotFound("idea", "id", id)
	}
	delete(f.ideas, id)
	for k := range f.purchases {
		if k[1] == id {
			delete(f.purchases, k)
		}
	}
	return nil
}

// --- purchases ---

func (f *fakeDB) CreatePurchase(_ context.Context, p *model.Purchase) error {
	key := [2]int64{p.UserID, p.IdeaID}
	if f.purchases[key] {
		return apperror.Conflict("purchase", "ideaId", "")
	}
	f.purchases[key] = true
	p.CreatedAt = f.tick()
	return nil
}

func (f *fakeDB) ExistsPurchase(_ context.Context, userID, ideaID int64) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.purchases[[2]int64{userID, ideaID}], nil
}

// fakeBlobStore records uploads and hands out predictable references.
type fakeBlobStore struct {
	uploads []string
	err     error
}

func (s *fakeBlobStore) Upload(_ context.Context, f *storage.File) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(f.Body)
	if err != nil {
		return "", err
	}
	s.uploads = append(s.uploads, string(body))
	return "https://files.test/" + f.Name, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFile(name, content string) *storage.File {
	return &storage.File{Name: name, Size: int64(len(content)), Body: strings.NewReader(content)}
}

// seedUser inserts a user straight into the fake.
func seedUser(t *testing.T, db *fakeDB, kakaoID, username string) *model.User {
	t.Helper()
	u := &model.User{KakaoID: kakaoID, Username: username}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}
