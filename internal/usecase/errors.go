package usecase

import (
	stderrors "errors"

	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

// Causes behind the uniform "Thread not found" response. They are only
// visible to logs and tests.
var (
	ErrThreadNotFound  = stderrors.New("thread does not exist")
	ErrNotParticipant  = stderrors.New("requester is not a participant of the thread")
	ErrNotBookingOwner = stderrors.New("requester does not own the booking")
	ErrNoBooking       = stderrors.New("thread has no linked booking")
)

// storeError converts a store failure into an AppError, logging internal
// failures with the operation name.
func storeError(op string, err error, resource string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound(resource, err)
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	logger.Error("%s Error: %v", op, err)
	return errors.Internal("Failed to "+opVerb(op), err)
}

func opVerb(op string) string {
	switch op {
	case "SendMessage":
		return "send message"
	case "MarkRead":
		return "mark messages as read"
	case "ListMessages":
		return "load messages"
	case "ListThreads", "GetThread":
		return "load threads"
	case "OpenThread":
		return "open thread"
	case "GetQuote":
		return "load quote"
	case "AcceptQuote", "RejectQuote":
		return "update quote"
	}
	return "complete request"
}
