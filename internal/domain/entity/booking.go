package entity

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further quote transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingCancelled
}

type Booking struct {
	ID                 string        `json:"id" firestore:"id"`
	ClientID           string        `json:"clientId" firestore:"clientId"`
	VendorID           string        `json:"vendorId" firestore:"vendorId"`
	PackageID          *string       `json:"packageId,omitempty" firestore:"packageId"`
	Status             BookingStatus `json:"status" firestore:"status"`
	EventDate          *time.Time    `json:"eventDate,omitempty" firestore:"eventDate"`
	GuestCount         int           `json:"guestCount" firestore:"guestCount"`
	TotalPrice         float64       `json:"totalPrice" firestore:"totalPrice"`
	Currency           string        `json:"currency" firestore:"currency"`
	ClientNotes        string        `json:"clientNotes,omitempty" firestore:"clientNotes"`
	CancellationReason string        `json:"cancellationReason,omitempty" firestore:"cancellationReason"`
	CreatedAt          time.Time     `json:"createdAt" firestore:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt" firestore:"updatedAt"`
}

// Package is the vendor offering a booking was made against.
type Package struct {
	ID          string  `json:"id" firestore:"id"`
	VendorID    string  `json:"vendorId" firestore:"vendorId"`
	Title       string  `json:"title" firestore:"title"`
	Description string  `json:"description,omitempty" firestore:"description"`
	Price       float64 `json:"price" firestore:"price"`
	Currency    string  `json:"currency" firestore:"currency"`
}

// BookingTransition describes a conditional status change.
type BookingTransition struct {
	From   BookingStatus
	To     BookingStatus
	Notes  string
	Reason string
	At     time.Time
}
