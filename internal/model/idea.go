package model

import "time"

// Idea is a marketplace listing.
//
// OwnerID is a plain foreign key. There is no *User field: "the owner's
// username" or "ideas of a user" are repository lookups, never traversals.
//
// FileURL is nil when the idea has no attached file. The blob store owns the
// bytes; we only keep the reference it handed back.
type Idea struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Price       int64     `json:"price"`
	FileURL     *string   `json:"fileUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IdeaSummary is the catalog projection used by list and search views.
// It deliberately leaves out the description and the file reference.
type IdeaSummary struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	Tags      []string  `json:"tags"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary projects the idea to its catalog view.
func (i *Idea) Summary() IdeaSummary {
	return IdeaSummary{
		ID:        i.ID,
		OwnerID:   i.OwnerID,
		Title:     i.Title,
		Category:  i.Category,
		Tags:      i.Tags,
		Price:     i.Price,
		CreatedAt: i.CreatedAt,
	}
}

// Summaries projects a slice of ideas. Never returns nil so JSON renders [].
func Summaries(ideas []Idea) []IdeaSummary {
	out := make([]IdeaSummary, 0, len(ideas))
	for i := range ideas {
		out = append(out, ideas[i].Summary())
	}
	return out
}

// AccessStatus describes what the requesting user may do with an idea's file.
type AccessStatus string

const (
	AccessOwn          AccessStatus = "OWN"
	AccessPurchased    AccessStatus = "PURCHASED"
	AccessNotPurchased AccessStatus = "NOT_PURCHASED"
)

// IdeaDetail is the single-item view: listing fields, the owner's username and
// the access status computed for the requesting user.
type IdeaDetail struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Category      Category     `json:"category"`
	Description   string       `json:"description"`
	Tags          []string     `json:"tags"`
	Price         int64        `json:"price"`
	OwnerUsername string       `json:"username"`
	CreatedAt     time.Time    `json:"createdAt"`
	Status        AccessStatus `json:"status"`
}

// IdeaRequest carries the user-editable fields of an idea.
//
// Category is only read by Update (as a display name); Create receives the
// parsed category separately.
//
// File mirrors the client's view of the current attachment. On Update, a nil
// File with no new upload clears the stored reference; a non-nil File with no
// new upload keeps it. Its value is never written to storage.
type IdeaRequest struct {
	Title               string
	Description         string
	Tags                []string
	Price               int64
	CategoryDisplayName string
	File                *string
}
