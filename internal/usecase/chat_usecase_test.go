package usecase

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorchat/internal/domain/entity"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/utils"
)

func TestVendorGreetingThenCustomerReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent := f.send(t, f.vendor, "Hi")
	assert.True(t, sent.IsOwn)
	assert.Equal(t, StatusSent, sent.Status)
	assert.Equal(t, "Vera's Venues", sent.Sender.Name)
	assert.Equal(t, entity.RoleVendor, sent.SenderType)

	thread := f.stored(t)
	assert.Equal(t, 1, thread.CustomerUnreadCount)
	assert.Equal(t, 0, thread.VendorUnreadCount)
	assert.Equal(t, "Hi", thread.LastMessage)
	require.NotNil(t, thread.LastMessageTime)
	assert.True(t, thread.LastMessageTime.Equal(sent.CreatedAt))

	page, err := f.chat.ListMessages(ctx, f.customer, MessagePageRequest{ThreadID: f.thread.ID})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.False(t, page.Messages[0].IsOwn)
	assert.Equal(t, StatusSent, page.Messages[0].Status)
	assert.Equal(t, 1, page.Thread.UnreadCount)
	assert.Equal(t, "Casey", page.Thread.Participants.Customer.Name)
	assert.Equal(t, "Vera's Venues", page.Thread.Participants.Vendor.Name)

	res, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Marked)
	assert.Equal(t, 0, res.UnreadCount)

	thread = f.stored(t)
	assert.Equal(t, 0, thread.CustomerUnreadCount)
	for _, m := range f.db.Messages(f.thread.ID) {
		assert.True(t, m.Read)
	}
	f.requireCountersMatch(t)
}

func TestSendMessage_EmptyPayloadRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []SendMessageInput{
		{ThreadID: f.thread.ID, Content: strPtr(""), Attachments: []entity.Attachment{}},
		{ThreadID: f.thread.ID, Content: strPtr("   \n\t")},
		{ThreadID: f.thread.ID},
	}
	for _, input := range cases {
		_, err := f.chat.SendMessage(ctx, f.vendor, input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, "BAD_REQUEST"), "got %v", err)
	}

	thread := f.stored(t)
	assert.Equal(t, 0, thread.CustomerUnreadCount)
	assert.Empty(t, thread.LastMessage)
	assert.Nil(t, thread.LastMessageTime)
	assert.Empty(t, f.db.Messages(f.thread.ID))
}

func TestSendMessage_AttachmentOnlyUsesPlaceholderPreview(t *testing.T) {
	f := newFixture(t)

	view, err := f.chat.SendMessage(context.Background(), f.customer, SendMessageInput{
		ThreadID:    f.thread.ID,
		Attachments: []entity.Attachment{{URL: "https://cdn.example.com/floorplan.pdf", Name: "floorplan.pdf"}},
	})
	require.NoError(t, err)
	assert.Nil(t, view.Content)
	assert.Equal(t, "file", view.Attachments[0].Type)

	thread := f.stored(t)
	assert.Equal(t, entity.AttachmentPreview, thread.LastMessage)
	assert.Equal(t, 1, thread.VendorUnreadCount)
	assert.Equal(t, 0, thread.CustomerUnreadCount)
}

func TestSendMessage_NonParticipantDenied(t *testing.T) {
	f := newFixture(t)

	_, err := f.chat.SendMessage(context.Background(), f.outsider, SendMessageInput{ThreadID: f.thread.ID, Content: strPtr("hello")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
	assert.Empty(t, f.db.Messages(f.thread.ID))
}

func TestSendMessage_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.chat.rateLimiter = denyLimiter{}

	_, err := f.chat.SendMessage(context.Background(), f.vendor, SendMessageInput{ThreadID: f.thread.ID, Content: strPtr("hello")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "TOO_MANY_REQUESTS"))
	assert.Empty(t, f.db.Messages(f.thread.ID))
}

func TestSendMessage_PublishesToCounterpart(t *testing.T) {
	f := newFixture(t)

	f.send(t, f.vendor, "Your date is available")

	events := f.pub.ofType(EventMessageCreated)
	require.Len(t, events, 1)
	assert.Equal(t, f.thread.ID, events[0].ThreadID)
	assert.Equal(t, []string{f.customer.UserID}, events[0].Recipients)
}

func TestSendMessage_ConcurrentSendsNeverLoseIncrements(t *testing.T) {
	f := newFixture(t)
	const senders = 2

	var wg sync.WaitGroup
	errs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.chat.SendMessage(context.Background(), f.vendor, SendMessageInput{ThreadID: f.thread.ID, Content: strPtr("ping")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	thread := f.stored(t)
	assert.Equal(t, senders, thread.CustomerUnreadCount)
	assert.Equal(t, 0, thread.VendorUnreadCount)
	f.requireCountersMatch(t)
}

func TestUnreadCountersMatchMessagesAfterInterleaving(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))

	type op struct {
		who  entity.Identity
		read bool
	}
	ops := make([]op, 200)
	for i := range ops {
		who := f.customer
		if rng.Intn(2) == 0 {
			who = f.vendor
		}
		ops[i] = op{who: who, read: rng.Intn(3) == 0}
	}

	var wg sync.WaitGroup
	for _, o := range ops {
		wg.Add(1)
		go func(o op) {
			defer wg.Done()
			ctx := context.Background()
			if o.read {
				_, err := f.chat.MarkRead(ctx, o.who, f.thread.ID, nil)
				assert.NoError(t, err)
				return
			}
			_, err := f.chat.SendMessage(ctx, o.who, SendMessageInput{ThreadID: f.thread.ID, Content: strPtr("msg")})
			assert.NoError(t, err)
		}(o)
	}
	wg.Wait()

	f.requireCountersMatch(t)
}

func TestMarkRead_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, f.vendor, "one")
	f.send(t, f.vendor, "two")

	first, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Marked)
	before := f.stored(t)
	msgsBefore := f.db.Messages(f.thread.ID)

	second, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Marked)
	assert.Equal(t, 0, second.UnreadCount)
	assert.Equal(t, before, f.stored(t))
	assert.Equal(t, msgsBefore, f.db.Messages(f.thread.ID))
	assert.Len(t, f.pub.ofType(EventThreadRead), 1)
}

func TestMarkRead_SubsetLeavesRemainderCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.send(t, f.vendor, "one")
	f.send(t, f.vendor, "two")
	f.send(t, f.vendor, "three")
	own := f.send(t, f.customer, "mine")

	// The customer's own message is not theirs to acknowledge.
	res, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, []string{first.ID, own.ID, first.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Marked)
	assert.Equal(t, 2, res.UnreadCount)

	thread := f.stored(t)
	assert.Equal(t, 2, thread.CustomerUnreadCount)
	assert.Equal(t, 1, thread.VendorUnreadCount)
	f.requireCountersMatch(t)
}

func TestMarkRead_EmptyListMarksNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, f.vendor, "one")
	f.send(t, f.vendor, "two")
	msgsBefore := f.db.Messages(f.thread.ID)

	res, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, []string{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Marked)
	assert.Equal(t, 2, res.UnreadCount)
	assert.Equal(t, 2, f.stored(t).CustomerUnreadCount)
	assert.Equal(t, msgsBefore, f.db.Messages(f.thread.ID))
	assert.Empty(t, f.pub.ofType(EventThreadRead))

	all, err := f.chat.MarkRead(ctx, f.customer, f.thread.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Marked)
	f.requireCountersMatch(t)
}

func TestMarkRead_RejectsMalformedIDs(t *testing.T) {
	f := newFixture(t)

	_, err := f.chat.MarkRead(context.Background(), f.customer, "not-a-uuid", nil)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.chat.MarkRead(context.Background(), f.customer, f.thread.ID, []string{"nope"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestListMessages_DescendingCursorCoversHistoryOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 23
	for i := 0; i < n; i++ {
		who := f.customer
		if i%3 == 0 {
			who = f.vendor
		}
		f.send(t, who, "m")
	}

	seen := make(map[string]bool)
	var order []time.Time
	var before *time.Time
	for pages := 0; pages < n; pages++ {
		page, err := f.chat.ListMessages(ctx, f.customer, MessagePageRequest{
			ThreadID: f.thread.ID,
			Limit:    5,
			Before:   before,
			Sort:     "desc",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(n), page.Pagination.Total)
		if len(page.Messages) == 0 {
			break
		}
		for _, m := range page.Messages {
			require.False(t, seen[m.ID], "duplicate %s", m.ID)
			seen[m.ID] = true
			order = append(order, m.CreatedAt)
		}
		oldest := page.Messages[len(page.Messages)-1].CreatedAt
		before = &oldest
	}

	assert.Len(t, seen, n)
	for i := 1; i < len(order); i++ {
		assert.True(t, order[i].Before(order[i-1]))
	}
}

func TestListMessages_AscendingCursorAndNextBefore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		f.send(t, f.vendor, "m")
	}

	var ids []string
	var before *time.Time
	for {
		page, err := f.chat.ListMessages(ctx, f.vendor, MessagePageRequest{
			ThreadID: f.thread.ID,
			Limit:    3,
			Before:   before,
			Sort:     "ASC",
		})
		require.NoError(t, err)
		for _, m := range page.Messages {
			ids = append(ids, m.ID)
		}
		if page.Pagination.NextBefore == nil {
			break
		}
		next, err := utils.ParseCursor(*page.Pagination.NextBefore)
		require.NoError(t, err)
		before = &next
	}

	var want []string
	for _, m := range f.db.Messages(f.thread.ID) {
		want = append(want, m.ID)
	}
	assert.Equal(t, want, ids)
}

func TestListMessages_OffsetHasMore(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.send(t, f.vendor, "m")
	}

	page, err := f.chat.ListMessages(context.Background(), f.customer, MessagePageRequest{ThreadID: f.thread.ID, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.True(t, page.Pagination.HasMore)

	page, err = f.chat.ListMessages(context.Background(), f.customer, MessagePageRequest{ThreadID: f.thread.ID, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
	assert.False(t, page.Pagination.HasMore)
}

func TestListMessages_AcknowledgeRead(t *testing.T) {
	f := newFixture(t)
	f.send(t, f.vendor, "one")
	f.send(t, f.vendor, "two")
	f.send(t, f.customer, "reply")

	page, err := f.chat.ListMessages(context.Background(), f.customer, MessagePageRequest{ThreadID: f.thread.ID, AcknowledgeRead: true})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Thread.UnreadCount)
	for _, m := range page.Messages {
		if m.SenderType == entity.RoleVendor {
			assert.Equal(t, StatusRead, m.Status)
		} else {
			assert.Equal(t, StatusSent, m.Status)
			assert.True(t, m.IsOwn)
		}
	}

	thread := f.stored(t)
	assert.Equal(t, 0, thread.CustomerUnreadCount)
	assert.Equal(t, 1, thread.VendorUnreadCount)
	f.requireCountersMatch(t)
}

func TestListMessages_DenialIsUniform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errExisting := f.chat.ListMessages(ctx, f.outsider, MessagePageRequest{ThreadID: f.thread.ID})
	_, errMissing := f.chat.ListMessages(ctx, f.outsider, MessagePageRequest{ThreadID: uuid.New().String()})
	wrongRole := entity.Identity{UserID: f.customer.UserID, Role: entity.RoleVendor}
	_, errRole := f.chat.ListMessages(ctx, wrongRole, MessagePageRequest{ThreadID: f.thread.ID})

	for _, err := range []error{errExisting, errMissing, errRole} {
		appErr, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
		assert.Equal(t, "Thread not found", appErr.Message)
	}

	_, err := f.chat.ListMessages(ctx, f.customer, MessagePageRequest{ThreadID: "42"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.chat.ListMessages(ctx, entity.Identity{}, MessagePageRequest{ThreadID: f.thread.ID})
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))
}

func TestNormalizeMessageQuery(t *testing.T) {
	q, err := NormalizeMessageQuery(MessagePageRequest{ThreadID: "t"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMessageLimit, q.Limit)
	assert.Equal(t, DefaultSort, q.Sort)

	q, err = NormalizeMessageQuery(MessagePageRequest{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)

	q, err = NormalizeMessageQuery(MessagePageRequest{Limit: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Limit)

	_, err = NormalizeMessageQuery(MessagePageRequest{Sort: "sideways"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}
