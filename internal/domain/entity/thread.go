package entity

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// PreviewMaxRunes bounds Thread.LastMessage.
	PreviewMaxRunes = 200
	// AttachmentPreview replaces the preview when a message has no text.
	AttachmentPreview = "Sent an attachment"
)

// Thread is a one-to-one conversation between a customer and a vendor,
// optionally anchored to a booking.
type Thread struct {
	ID                  string     `json:"id" firestore:"id"`
	CustomerID          string     `json:"customerId" firestore:"customerId"`
	VendorID            string     `json:"vendorId" firestore:"vendorId"`
	BookingID           *string    `json:"bookingId,omitempty" firestore:"bookingId"`
	LastMessage         string     `json:"lastMessage" firestore:"lastMessage"`
	LastMessageTime     *time.Time `json:"lastMessageTime,omitempty" firestore:"lastMessageTime"`
	CustomerUnreadCount int        `json:"customerUnreadCount" firestore:"customerUnreadCount"`
	VendorUnreadCount   int        `json:"vendorUnreadCount" firestore:"vendorUnreadCount"`
	MessageCount        int64      `json:"messageCount" firestore:"messageCount"`
	CreatedAt           time.Time  `json:"createdAt" firestore:"createdAt"`
}

// NewThread validates participants and returns an empty thread.
func NewThread(id, customerID, vendorID string, bookingID *string, createdAt time.Time) (Thread, error) {
	customerID = strings.TrimSpace(customerID)
	vendorID = strings.TrimSpace(vendorID)
	switch {
	case id == "":
		return Thread{}, errors.New("thread id is required")
	case customerID == "" || vendorID == "":
		return Thread{}, errors.New("thread needs both a customer and a vendor")
	case customerID == vendorID:
		return Thread{}, errors.New("customer and vendor must be different users")
	}
	if bookingID != nil && strings.TrimSpace(*bookingID) == "" {
		bookingID = nil
	}
	return Thread{
		ID:         id,
		CustomerID: customerID,
		VendorID:   vendorID,
		BookingID:  bookingID,
		CreatedAt:  createdAt.UTC(),
	}, nil
}

// ParticipantID returns the user id holding role r in this thread.
func (t Thread) ParticipantID(r Role) string {
	if r == RoleVendor {
		return t.VendorID
	}
	return t.CustomerID
}

// IsParticipant reports whether id acts as role r in this thread.
func (t Thread) IsParticipant(id Identity) bool {
	switch id.Role {
	case RoleCustomer:
		return id.UserID != "" && id.UserID == t.CustomerID
	case RoleVendor:
		return id.UserID != "" && id.UserID == t.VendorID
	}
	return false
}

// UnreadFor returns the unread counter owned by role r.
func (t Thread) UnreadFor(r Role) int {
	if r == RoleVendor {
		return t.VendorUnreadCount
	}
	return t.CustomerUnreadCount
}

// NextMessageTime keeps message timestamps strictly increasing within a
// thread so that timestamp cursors never split or repeat a row.
func (t Thread) NextMessageTime(now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if t.LastMessageTime != nil && !now.After(*t.LastMessageTime) {
		return t.LastMessageTime.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}

// Preview builds the LastMessage value for a message.
func Preview(m Message) string {
	if m.Content == nil || strings.TrimSpace(*m.Content) == "" {
		return AttachmentPreview
	}
	text := strings.TrimSpace(*m.Content)
	if utf8.RuneCountInString(text) <= PreviewMaxRunes {
		return text
	}
	return string([]rune(text)[:PreviewMaxRunes])
}
