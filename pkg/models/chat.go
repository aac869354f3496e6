package models

import "time"

// Chat log senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatLog is one append-only entry in a workflow's conversation history.
// Each execution writes one user entry and one bot entry.
type ChatLog struct {
	ID         int       `json:"id"`
	WorkflowID int       `json:"workflow_id"`
	Sender     string    `json:"sender"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
