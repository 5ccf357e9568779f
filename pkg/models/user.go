package models

// UserSummary is the public profile projection attached to conversation
// listings. Profile management lives in a separate service; chatd only
// mirrors the fields clients need to render a chat list.
type UserSummary struct {
	ID         string `json:"id"`
	Username   string `json:"username,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
}
