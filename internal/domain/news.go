package domain

import "time"

// News is an admin-authored post. Sent flips once, after channel publication.
type News struct {
	ID        int64
	Content   string
	AuthorID  int64
	Sent      bool
	CreatedAt time.Time
	SentAt    *time.Time
}
