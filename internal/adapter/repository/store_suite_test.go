package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

// storeSet is one backend's thread, message and ledger stores.
type storeSet struct {
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	ledger   repository.UnreadLedger
}

// runStoreSuite checks the behaviour every backend must share.
func runStoreSuite(t *testing.T, s storeSet) {
	t.Run("ConcurrentSendsEachIncrement", func(t *testing.T) { testConcurrentSends(t, s) })
	t.Run("AcknowledgeSubsetRecomputes", func(t *testing.T) { testAcknowledgeSubset(t, s) })
	t.Run("CursorPagesPartitionHistory", func(t *testing.T) { testCursorPartition(t, s) })
	t.Run("CreateRejectsDuplicateID", func(t *testing.T) { testCreateConflict(t, s) })
	t.Run("ListByParticipantIsStable", func(t *testing.T) { testListByParticipant(t, s) })
}

func seedThread(t *testing.T, s storeSet, customerID, vendorID string, createdAt time.Time) entity.Thread {
	t.Helper()
	thread, err := entity.NewThread(uuid.New().String(), customerID, vendorID, nil, createdAt)
	require.NoError(t, err)
	require.NoError(t, s.threads.Create(context.Background(), thread))
	return thread
}

func newPair() (string, string) {
	suffix := uuid.New().String()[:8]
	return "cust-" + suffix, "vend-" + suffix
}

func appendText(t *testing.T, s storeSet, thread entity.Thread, sender entity.Role, text string, now time.Time) entity.Message {
	t.Helper()
	who := entity.Identity{UserID: thread.ParticipantID(sender), Role: sender}
	msg, err := entity.NewMessage(uuid.New().String(), thread.ID, who, &text, nil)
	require.NoError(t, err)
	stored, _, err := s.ledger.AppendMessage(context.Background(), msg, entity.Preview(msg), now)
	require.NoError(t, err)
	return stored
}

// requireCountersMatch checks both counters against the unread flags.
func requireCountersMatch(t *testing.T, s storeSet, threadID string) entity.Thread {
	t.Helper()
	ctx := context.Background()
	thread, err := s.threads.GetByID(ctx, threadID)
	require.NoError(t, err)

	msgs, _, err := s.messages.ListByThread(ctx, repository.MessageQuery{ThreadID: threadID, Limit: 200, Sort: repository.SortAsc})
	require.NoError(t, err)
	unread := map[entity.Role]int{}
	for _, m := range msgs {
		if !m.Read {
			unread[m.SenderType.Counterpart()]++
		}
	}
	require.Equal(t, unread[entity.RoleCustomer], thread.CustomerUnreadCount, "customer counter")
	require.Equal(t, unread[entity.RoleVendor], thread.VendorUnreadCount, "vendor counter")
	return thread
}

func testConcurrentSends(t *testing.T, s storeSet) {
	ctx := context.Background()
	customerID, vendorID := newPair()
	thread := seedThread(t, s, customerID, vendorID, time.Now())
	vendor := entity.Identity{UserID: vendorID, Role: entity.RoleVendor}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	now := time.Now()
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("update %d", i)
			msg, err := entity.NewMessage(uuid.New().String(), thread.ID, vendor, &text, nil)
			if err == nil {
				_, _, err = s.ledger.AppendMessage(ctx, msg, text, now)
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := requireCountersMatch(t, s, thread.ID)
	assert.Equal(t, 2, got.CustomerUnreadCount)
	assert.Equal(t, 0, got.VendorUnreadCount)
	assert.Equal(t, int64(2), got.MessageCount)

	msgs, total, err := s.messages.ListByThread(ctx, repository.MessageQuery{ThreadID: thread.ID, Limit: 10, Sort: repository.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt), "same clock still yields distinct timestamps")
}

func testAcknowledgeSubset(t *testing.T, s storeSet) {
	ctx := context.Background()
	customerID, vendorID := newPair()
	thread := seedThread(t, s, customerID, vendorID, time.Now())
	now := time.Now()

	var offers []entity.Message
	for i := 1; i <= 4; i++ {
		offers = append(offers, appendText(t, s, thread, entity.RoleVendor, fmt.Sprintf("option %d", i), now))
	}
	own := appendText(t, s, thread, entity.RoleCustomer, "thanks", now)
	requireCountersMatch(t, s, thread.ID)

	ids := []string{offers[0].ID, offers[2].ID, own.ID, uuid.New().String()}
	rc, err := s.ledger.Acknowledge(ctx, thread.ID, entity.RoleCustomer, ids)
	require.NoError(t, err)
	assert.Equal(t, repository.ReadReceipt{Marked: 2, UnreadCount: 2}, rc)

	rc, err = s.ledger.Acknowledge(ctx, thread.ID, entity.RoleCustomer, ids)
	require.NoError(t, err)
	assert.Equal(t, repository.ReadReceipt{Marked: 0, UnreadCount: 2}, rc)

	got := requireCountersMatch(t, s, thread.ID)
	assert.Equal(t, 2, got.CustomerUnreadCount)
	assert.Equal(t, 1, got.VendorUnreadCount, "own message stays unread for the vendor")

	rc, err = s.ledger.Acknowledge(ctx, thread.ID, entity.RoleCustomer, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.ReadReceipt{Marked: 2, UnreadCount: 0}, rc)

	rc, err = s.ledger.Acknowledge(ctx, thread.ID, entity.RoleVendor, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.ReadReceipt{Marked: 1, UnreadCount: 0}, rc)

	got = requireCountersMatch(t, s, thread.ID)
	assert.Zero(t, got.CustomerUnreadCount)
	assert.Zero(t, got.VendorUnreadCount)

	_, err = s.ledger.Acknowledge(ctx, uuid.New().String(), entity.RoleCustomer, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testCursorPartition(t *testing.T, s storeSet) {
	ctx := context.Background()
	customerID, vendorID := newPair()
	thread := seedThread(t, s, customerID, vendorID, time.Now())

	// One clock reading for every send: ordering relies on the store
	// keeping timestamps strictly increasing.
	now := time.Now()
	var sent []string
	for i := 0; i < 23; i++ {
		sender := entity.RoleCustomer
		if i%3 == 0 {
			sender = entity.RoleVendor
		}
		sent = append(sent, appendText(t, s, thread, sender, fmt.Sprintf("msg %02d", i), now).ID)
	}
	newestFirst := slices.Clone(sent)
	slices.Reverse(newestFirst)

	for _, order := range []repository.SortOrder{repository.SortDesc, repository.SortAsc} {
		var got []string
		var before *time.Time
		for pages := 0; pages < 10; pages++ {
			msgs, total, err := s.messages.ListByThread(ctx, repository.MessageQuery{
				ThreadID: thread.ID,
				Limit:    5,
				Sort:     order,
				Before:   before,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(23), total)
			for _, m := range msgs {
				got = append(got, m.ID)
			}
			if len(msgs) < 5 {
				break
			}
			last := msgs[len(msgs)-1].CreatedAt
			before = &last
		}

		want := sent
		if order == repository.SortDesc {
			want = newestFirst
		}
		assert.Equal(t, want, got, string(order))
	}

	tail, total, err := s.messages.ListByThread(ctx, repository.MessageQuery{ThreadID: thread.ID, Limit: 5, Offset: 20, Sort: repository.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
	ids := make([]string, 0, len(tail))
	for _, m := range tail {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, newestFirst[20:], ids)
}

func testCreateConflict(t *testing.T, s storeSet) {
	ctx := context.Background()
	customerID, vendorID := newPair()
	thread := seedThread(t, s, customerID, vendorID, time.Now())

	assert.ErrorIs(t, s.threads.Create(ctx, thread), repository.ErrConflict)

	found, err := s.threads.FindByParticipants(ctx, customerID, vendorID, nil)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, found.ID)

	_, err = s.threads.FindByParticipants(ctx, customerID, vendorID, strPtr("bk-unknown"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.threads.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListByParticipant(t *testing.T, s storeSet) {
	ctx := context.Background()
	customerID, _ := newPair()
	created := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)

	var quiet []entity.Thread
	for i := 0; i < 3; i++ {
		quiet = append(quiet, seedThread(t, s, customerID, fmt.Sprintf("vend-%s-%d", uuid.New().String()[:8], i), created))
	}
	active := seedThread(t, s, customerID, "vend-"+uuid.New().String()[:8], created)
	appendText(t, s, active, entity.RoleVendor, "available", time.Now())

	slices.SortFunc(quiet, func(a, b entity.Thread) int {
		if a.ID < b.ID {
			return -1
		}
		return 1
	})
	want := []string{active.ID}
	for _, th := range quiet {
		want = append(want, th.ID)
	}

	who := entity.Identity{UserID: customerID, Role: entity.RoleCustomer}
	var got []string
	for offset := 0; offset < 4; offset += 2 {
		page, total, err := s.threads.ListByParticipant(ctx, who, 2, offset)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		for _, th := range page {
			got = append(got, th.ID)
		}
	}
	assert.Equal(t, want, got)

	first, _, err := s.threads.ListByParticipant(ctx, who, 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].CustomerUnreadCount)
	assert.Equal(t, "available", first[0].LastMessage)
}

func strPtr(s string) *string { return &s }
