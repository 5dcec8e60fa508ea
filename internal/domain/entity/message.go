package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxContentRunes = 5000
	MaxAttachments  = 10
)

var ErrEmptyMessage = errors.New("message needs content or at least one attachment")

// Attachment is an opaque descriptor produced by the upload collaborator.
type Attachment struct {
	Type string `json:"type" firestore:"type"`
	URL  string `json:"url" firestore:"url"`
	Name string `json:"name,omitempty" firestore:"name,omitempty"`
	Size int64  `json:"size,omitempty" firestore:"size,omitempty"`
}

type Message struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"threadId"`
	SenderID    string       `json:"senderId"`
	SenderType  Role         `json:"senderType"`
	Content     *string      `json:"content"`
	Attachments []Attachment `json:"attachments"`
	Read        bool         `json:"read"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewMessage trims content and validates the payload. CreatedAt is left for
// the store to assign inside the send transaction.
func NewMessage(id, threadID string, sender Identity, content *string, attachments []Attachment) (Message, error) {
	if !sender.Role.Valid() || sender.UserID == "" {
		return Message{}, errors.New("message sender is invalid")
	}

	var text *string
	if content != nil {
		trimmed := strings.TrimSpace(*content)
		if trimmed != "" {
			if utf8.RuneCountInString(trimmed) > MaxContentRunes {
				return Message{}, fmt.Errorf("content exceeds %d characters", MaxContentRunes)
			}
			text = &trimmed
		}
	}

	if len(attachments) > MaxAttachments {
		return Message{}, fmt.Errorf("at most %d attachments are allowed", MaxAttachments)
	}
	atts := make([]Attachment, 0, len(attachments))
	for i, a := range attachments {
		a.URL = strings.TrimSpace(a.URL)
		if a.URL == "" {
			return Message{}, fmt.Errorf("attachment %d has no url", i)
		}
		if a.Type == "" {
			a.Type = "file"
		}
		atts = append(atts, a)
	}

	if text == nil && len(atts) == 0 {
		return Message{}, ErrEmptyMessage
	}

	return Message{
		ID:          id,
		ThreadID:    threadID,
		SenderID:    sender.UserID,
		SenderType:  sender.Role,
		Content:     text,
		Attachments: atts,
	}, nil
}
