package models

import "time"

// User represents a registered account. The bcrypt hash never leaves the
// process: it is excluded from JSON and stripped from every response.
type User struct {
	UserID       string    `json:"userId" dynamodbav:"userId"`
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"passwordHash"`
	ProfileImage string    `json:"profileImage,omitempty" dynamodbav:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"createdAt"`
}
