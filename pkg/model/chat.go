package model

import "time"

// ChatMessage is one entry in a chat session transcript. Timestamps are
// stored as RFC3339 strings; invalid ones are replaced on write.
type ChatMessage struct {
	Sender    string `json:"sender" bson:"sender" validate:"required,oneof=user agent"`
	Text      string `json:"text" bson:"text"`
	FileID    string `json:"file_id,omitempty" bson:"file_id,omitempty"`
	FileName  string `json:"file_name,omitempty" bson:"file_name,omitempty"`
	FileType  string `json:"file_type,omitempty" bson:"file_type,omitempty"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
}

type ChatSession struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string        `json:"user_id" bson:"user_id" validate:"required"`
	Messages  []ChatMessage `json:"messages" bson:"messages"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}
