package models

import "time"

// Comment is a reply to a post. UserName is a snapshot of the author's
// display name taken at creation time; it is not refreshed if the user
// later renames.
type Comment struct {
	CommentID string     `json:"commentId" dynamodbav:"commentId"`
	PostID    string     `json:"postId" dynamodbav:"postId"`
	UserID    string     `json:"userId" dynamodbav:"userId"`
	UserName  string     `json:"userName" dynamodbav:"userName"`
	Content   string     `json:"content" dynamodbav:"content"`
	CreatedAt time.Time  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}
