package models

import "time"

// Comment is a user review line on a restaurant, newest first when listed.
type Comment struct {
	ID          int       `json:"id" db:"id"`
	Content     string    `json:"content" db:"content"`
	Username    string    `json:"username" db:"username"`
	CommentedAt time.Time `json:"commented_at" db:"commented_at"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type CommentsResponse struct {
	Comments []Comment `json:"comments"`
}
