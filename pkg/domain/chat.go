package domain

import "time"

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	Timestamp time.Time     `json:"timestamp"`
}
