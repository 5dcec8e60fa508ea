package usecase

import (
	"context"
	"time"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/logger"
)

// Participant is the display data of one side of a thread.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Participants struct {
	Customer Participant `json:"customer"`
	Vendor   Participant `json:"vendor"`
}

const (
	StatusSent = "sent"
	StatusRead = "read"
)

// MessageView is a message as seen by one participant.
type MessageView struct {
	entity.Message
	Sender Participant `json:"sender"`
	IsOwn  bool        `json:"isOwn"`
	Status string      `json:"status"`
}

// ThreadView is a thread as seen by one participant.
type ThreadView struct {
	ID              string       `json:"id"`
	BookingID       *string      `json:"bookingId,omitempty"`
	LastMessage     string       `json:"lastMessage"`
	LastMessageTime *time.Time   `json:"lastMessageTime"`
	UnreadCount     int          `json:"unreadCount"`
	Role            entity.Role  `json:"role"`
	Counterpart     Participant  `json:"counterpart"`
	Participants    Participants `json:"participants"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// profileSet resolves participant display data. Missing profiles fall back
// to the bare id.
type profileSet map[string]entity.Profile

func loadProfiles(ctx context.Context, users repository.UserRepository, ids ...string) profileSet {
	profiles, err := users.GetProfiles(ctx, ids)
	if err != nil {
		logger.Warn("loadProfiles: %v", err)
		return profileSet{}
	}
	return profileSet(profiles)
}

func (ps profileSet) participant(id string) Participant {
	p, ok := ps[id]
	if !ok {
		return Participant{ID: id}
	}
	return Participant{ID: id, Name: p.Name, Avatar: p.AvatarURL}
}

func newThreadView(t entity.Thread, who entity.Identity, ps profileSet) ThreadView {
	parts := Participants{
		Customer: ps.participant(t.CustomerID),
		Vendor:   ps.participant(t.VendorID),
	}
	counterpart := parts.Vendor
	if who.Role == entity.RoleVendor {
		counterpart = parts.Customer
	}
	return ThreadView{
		ID:              t.ID,
		BookingID:       t.BookingID,
		LastMessage:     t.LastMessage,
		LastMessageTime: t.LastMessageTime,
		UnreadCount:     t.UnreadFor(who.Role),
		Role:            who.Role,
		Counterpart:     counterpart,
		Participants:    parts,
		CreatedAt:       t.CreatedAt,
	}
}

func newMessageView(m entity.Message, who entity.Identity, ps profileSet) MessageView {
	status := StatusSent
	if m.Read {
		status = StatusRead
	}
	return MessageView{
		Message: m,
		Sender:  ps.participant(m.SenderID),
		IsOwn:   m.SenderID == who.UserID && m.SenderType == who.Role,
		Status:  status,
	}
}
