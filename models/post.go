package models

import "time"

// Post is a text entry with an optional image, immutable after creation.
// ImageURL holds the object key as stored; read paths swap it for a
// time-limited download URL before responding.
type Post struct {
	PostID    string    `json:"postId" dynamodbav:"postId"`
	UserID    string    `json:"userId" dynamodbav:"userId"`
	Title     string    `json:"title" dynamodbav:"title"`
	Content   string    `json:"content" dynamodbav:"content"`
	ImageURL  string    `json:"imageUrl,omitempty" dynamodbav:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}
