// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a marketplace account.
//
// Accounts are created on first Kakao login, so KakaoID is the external
// identity and ID is our own autoincrement key. Username is what other users
// see; it is unique and is the only field a user can change themselves.
//
// WHY ProfileImage string (not *string)?
// Kakao may not hand us an image. An empty string is the "absent" value, same
// as Email. Idea.FileURL is different: there "absent" is part of the access
// contract, so it is a pointer.
type User struct {
	ID           int64     `json:"id"`
	KakaoID      string    `json:"-"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	Points       int64     `json:"points"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is the public view of a user returned by GET /api/me.
type UserProfile struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Points       int64  `json:"points"`
}

// Profile projects the user to its profile view.
func (u *User) Profile() UserProfile {
	return UserProfile{
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		Points:       u.Points,
	}
}
