// Package domain contains the core business entities for QuillPost.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a blog post.
type Post struct {
	// ID is the unique identifier for the post.
	ID uuid.UUID `json:"id"`

	// Title is the post title. Required.
	Title string `json:"title"`

	// Content is the post body. Required.
	Content string `json:"content"`

	// AuthorID references the user who created the post. A post always
	// has an author; deleting a user does not cascade to their posts.
	AuthorID int64 `json:"author_id"`

	// Thumbnail is the optional URL of a hosted thumbnail image.
	Thumbnail string `json:"thumbnail,omitempty"`

	// Restricted flags content that matched the moderation classifier at
	// write time. Owners and admins can override it directly afterwards.
	Restricted bool `json:"restricted"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the post was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPost creates a new Post owned by the given author.
func NewPost(title, content string, authorID int64, thumbnail string, restricted bool) *Post {
	now := time.Now().UTC()
	return &Post{
		ID:         uuid.New(),
		Title:      title,
		Content:    content,
		AuthorID:   authorID,
		Thumbnail:  thumbnail,
		Restricted: restricted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// OwnedBy reports whether the post belongs to the given user.
func (p *Post) OwnedBy(userID int64) bool {
	return p.AuthorID == userID
}
