package usecase

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/logger"
)

const actionSendMessage = "send_message"

type ChatUseCase struct {
	guard       *AccessGuard
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	reconciler  *UnreadReconciler
	publisher   Publisher
	rateLimiter RateLimiter
	now         func() time.Time
}

func NewChatUseCase(
	threadRepo repository.ThreadRepository,
	messageRepo repository.MessageRepository,
	ledger repository.UnreadLedger,
	userRepo repository.UserRepository,
	publisher Publisher,
	rateLimiter RateLimiter,
) *ChatUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if rateLimiter == nil {
		rateLimiter = unlimited{}
	}
	return &ChatUseCase{
		guard:       NewAccessGuard(threadRepo),
		messageRepo: messageRepo,
		userRepo:    userRepo,
		reconciler:  NewUnreadReconciler(ledger),
		publisher:   publisher,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

// MessagePage is one page of a thread's history.
type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	Pagination PageInfo      `json:"pagination"`
	Thread     ThreadView    `json:"thread"`
}

// ListMessages returns a page of history. With AcknowledgeRead set, the
// counterpart's messages are marked read in the same call, the way opening
// a conversation does in the client.
func (uc *ChatUseCase) ListMessages(ctx context.Context, who entity.Identity, req MessagePageRequest) (*MessagePage, error) {
	thread, err := uc.guard.Authorize(ctx, req.ThreadID, who)
	if err != nil {
		return nil, err
	}

	q, err := NormalizeMessageQuery(req)
	if err != nil {
		return nil, err
	}

	msgs, total, err := uc.messageRepo.ListByThread(ctx, q)
	if err != nil {
		return nil, storeError("ListMessages", err, "Thread")
	}

	if req.AcknowledgeRead && thread.UnreadFor(who.Role) > 0 {
		receipt, err := uc.reconciler.RecordRead(ctx, thread.ID, who.Role, nil)
		if err != nil {
			return nil, storeError("MarkRead", err, "Thread")
		}
		counterpart := who.Role.Counterpart()
		for i := range msgs {
			if msgs[i].SenderType == counterpart {
				msgs[i].Read = true
			}
		}
		setUnread(&thread, who.Role, receipt.UnreadCount)
		if receipt.Marked > 0 {
			uc.notifyRead(ctx, thread, who, receipt)
		}
	}

	ps := loadProfiles(ctx, uc.userRepo, thread.CustomerID, thread.VendorID)
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, newMessageView(m, who, ps))
	}

	return &MessagePage{
		Messages:   views,
		Pagination: newPageInfo(q, total, msgs),
		Thread:     newThreadView(thread, who, ps),
	}, nil
}

func setUnread(t *entity.Thread, r entity.Role, n int) {
	if r == entity.RoleVendor {
		t.VendorUnreadCount = n
		return
	}
	t.CustomerUnreadCount = n
}

type SendMessageInput struct {
	ThreadID    string
	Content     *string
	Attachments []entity.Attachment
}

// SendMessage appends a message and bumps the counterpart's unread counter.
func (uc *ChatUseCase) SendMessage(ctx context.Context, who entity.Identity, input SendMessageInput) (*MessageView, error) {
	thread, err := uc.guard.Authorize(ctx, input.ThreadID, who)
	if err != nil {
		return nil, err
	}

	msg, err := entity.NewMessage(uuid.New().String(), thread.ID, who, input.Content, input.Attachments)
	if err != nil {
		if stderrors.Is(err, entity.ErrEmptyMessage) {
			return nil, errors.BadRequest("Message content or attachments are required", err)
		}
		return nil, errors.BadRequest(err.Error(), err)
	}

	allowed, wait := uc.rateLimiter.Allow(who.UserID, actionSendMessage)
	if !allowed {
		logger.Warn("SendMessage Rate Limited: user %s must wait %v", who.UserID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message", nil)
	}

	msg, thread, err = uc.reconciler.RecordSend(ctx, msg)
	if err != nil {
		return nil, storeError("SendMessage", err, "Thread")
	}

	ps := loadProfiles(ctx, uc.userRepo, who.UserID)
	view := newMessageView(msg, who, ps)

	uc.publish(ctx, Event{
		Type:       EventMessageCreated,
		ThreadID:   thread.ID,
		Recipients: []string{thread.ParticipantID(who.Role.Counterpart())},
		Payload: map[string]any{
			"message":     view,
			"unreadCount": thread.UnreadFor(who.Role.Counterpart()),
		},
	})

	return &view, nil
}

// ReadResult acknowledges a mark-read call.
type ReadResult struct {
	ThreadID    string `json:"threadId"`
	Marked      int    `json:"marked"`
	UnreadCount int    `json:"unreadCount"`
}

// MarkRead flips the counterpart's unread messages (or only messageIDs) to
// read and sets the caller's counter to the number still unread. Calling it
// with nothing unread succeeds without changing anything. A nil messageIDs
// means every message; an empty, non-nil list names none.
func (uc *ChatUseCase) MarkRead(ctx context.Context, who entity.Identity, threadID string, messageIDs []string) (*ReadResult, error) {
	thread, err := uc.guard.Authorize(ctx, threadID, who)
	if err != nil {
		return nil, err
	}

	for _, id := range messageIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, errors.BadRequest("Invalid message id: "+id, err)
		}
	}
	if messageIDs != nil && len(messageIDs) == 0 {
		return &ReadResult{ThreadID: thread.ID, UnreadCount: thread.UnreadFor(who.Role)}, nil
	}

	receipt, err := uc.reconciler.RecordRead(ctx, thread.ID, who.Role, messageIDs)
	if err != nil {
		return nil, storeError("MarkRead", err, "Thread")
	}
	if receipt.Marked > 0 {
		uc.notifyRead(ctx, thread, who, receipt)
	}

	return &ReadResult{
		ThreadID:    thread.ID,
		Marked:      receipt.Marked,
		UnreadCount: receipt.UnreadCount,
	}, nil
}

func (uc *ChatUseCase) notifyRead(ctx context.Context, thread entity.Thread, who entity.Identity, receipt repository.ReadReceipt) {
	uc.publish(ctx, Event{
		Type:       EventThreadRead,
		ThreadID:   thread.ID,
		Recipients: []string{thread.ParticipantID(who.Role.Counterpart())},
		Payload: map[string]any{
			"readerId": who.UserID,
			"marked":   receipt.Marked,
		},
	})
}

func (uc *ChatUseCase) publish(ctx context.Context, event Event) {
	event.At = uc.now().UTC()
	deliver(ctx, uc.publisher, event)
}

// deliver publishes after the store has committed. Failures are logged and
// dropped.
func deliver(ctx context.Context, p Publisher, event Event) {
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn("Publish %s for thread %s failed: %v", event.Type, event.ThreadID, err)
	}
}
