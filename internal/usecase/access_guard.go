package usecase

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

// AccessGuard decides whether a caller may touch a thread. A missing thread
// and a thread the caller is not part of produce the same error.
type AccessGuard struct {
	threads repository.ThreadRepository
}

func NewAccessGuard(threads repository.ThreadRepository) *AccessGuard {
	return &AccessGuard{threads: threads}
}

func validThreadID(threadID string) error {
	if _, err := uuid.Parse(threadID); err != nil {
		return errors.BadRequest("Invalid thread id", err)
	}
	return nil
}

func (g *AccessGuard) load(ctx context.Context, threadID string, who entity.Identity) (entity.Thread, error) {
	if who.UserID == "" || !who.Role.Valid() {
		return entity.Thread{}, errors.Unauthorized("Authentication required", nil)
	}
	if err := validThreadID(threadID); err != nil {
		return entity.Thread{}, err
	}

	thread, err := g.threads.GetByID(ctx, threadID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return entity.Thread{}, errors.NotFound("Thread", ErrThreadNotFound)
	}
	if err != nil {
		return entity.Thread{}, storeError("Authorize", err, "Thread")
	}
	return thread, nil
}

// Authorize returns the thread when who is its customer or its vendor.
func (g *AccessGuard) Authorize(ctx context.Context, threadID string, who entity.Identity) (entity.Thread, error) {
	thread, err := g.load(ctx, threadID, who)
	if err != nil {
		return entity.Thread{}, err
	}
	if !thread.IsParticipant(who) {
		logger.Warn("Authorize: user %s (%s) denied on thread %s", who.UserID, who.Role, threadID)
		return entity.Thread{}, errors.NotFound("Thread", ErrNotParticipant)
	}
	return thread, nil
}

// AuthorizeCustomer is Authorize restricted to the customer side.
func (g *AccessGuard) AuthorizeCustomer(ctx context.Context, threadID string, who entity.Identity) (entity.Thread, error) {
	if who.Role != entity.RoleCustomer {
		if _, err := g.load(ctx, threadID, who); err != nil {
			return entity.Thread{}, err
		}
		return entity.Thread{}, errors.NotFound("Thread", ErrNotParticipant)
	}
	return g.Authorize(ctx, threadID, who)
}
