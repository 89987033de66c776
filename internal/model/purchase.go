package model

import "time"

// Purchase records that a user bought access to an idea's file.
// The (UserID, IdeaID) pair is the key; there is no separate identity.
type Purchase struct {
	UserID    int64     `json:"userId"`
	IdeaID    int64     `json:"ideaId"`
	CreatedAt time.Time `json:"createdAt"`
}
