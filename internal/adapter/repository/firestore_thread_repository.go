package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

const (
	threadsCollection  = "threads"
	messagesCollection = "messages"
)

type messageDoc struct {
	ID          string              `firestore:"id"`
	ThreadID    string              `firestore:"threadId"`
	SenderID    string              `firestore:"senderId"`
	SenderType  string              `firestore:"senderType"`
	Content     *string             `firestore:"content"`
	Attachments []entity.Attachment `firestore:"attachments"`
	Read        bool                `firestore:"read"`
	CreatedAt   time.Time           `firestore:"createdAt"`
}

func toMessageDoc(m entity.Message) messageDoc {
	atts := m.Attachments
	if atts == nil {
		atts = []entity.Attachment{}
	}
	return messageDoc{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		SenderID:    m.SenderID,
		SenderType:  m.SenderType.SenderType(),
		Content:     m.Content,
		Attachments: atts,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}

func (d messageDoc) toEntity() (entity.Message, error) {
	role, err := entity.ParseRole(d.SenderType)
	if err != nil {
		return entity.Message{}, fmt.Errorf("message %s: %w", d.ID, err)
	}
	atts := d.Attachments
	if atts == nil {
		atts = []entity.Attachment{}
	}
	return entity.Message{
		ID:          d.ID,
		ThreadID:    d.ThreadID,
		SenderID:    d.SenderID,
		SenderType:  role,
		Content:     d.Content,
		Attachments: atts,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt.UTC(),
	}, nil
}

func unreadField(r entity.Role) string {
	if r == entity.RoleVendor {
		return "vendorUnreadCount"
	}
	return "customerUnreadCount"
}

func participantField(r entity.Role) string {
	if r == entity.RoleVendor {
		return "vendorId"
	}
	return "customerId"
}

func threadFromSnapshot(doc *firestore.DocumentSnapshot) (entity.Thread, error) {
	var t entity.Thread
	if err := doc.DataTo(&t); err != nil {
		return entity.Thread{}, fmt.Errorf("parse thread %s: %w", doc.Ref.ID, err)
	}
	t.ID = doc.Ref.ID
	return t, nil
}

type firestoreThreadRepository struct {
	client *firestore.Client
}

func NewFirestoreThreadRepository(client *firestore.Client) repository.ThreadRepository {
	return &firestoreThreadRepository{client: client}
}

func (r *firestoreThreadRepository) Create(ctx context.Context, thread entity.Thread) error {
	_, err := r.client.Collection(threadsCollection).Doc(thread.ID).Create(ctx, thread)
	if status.Code(err) == codes.AlreadyExists {
		return repository.ErrConflict
	}
	return err
}

func (r *firestoreThreadRepository) GetByID(ctx context.Context, id string) (entity.Thread, error) {
	doc, err := r.client.Collection(threadsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Thread{}, repository.ErrNotFound
		}
		return entity.Thread{}, err
	}
	return threadFromSnapshot(doc)
}

func (r *firestoreThreadRepository) FindByParticipants(ctx context.Context, customerID, vendorID string, bookingID *string) (entity.Thread, error) {
	var booking interface{}
	if bookingID != nil {
		booking = *bookingID
	}
	iter := r.client.Collection(threadsCollection).
		Where("customerId", "==", customerID).
		Where("vendorId", "==", vendorID).
		Where("bookingId", "==", booking).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return entity.Thread{}, repository.ErrNotFound
	}
	if err != nil {
		return entity.Thread{}, err
	}
	return threadFromSnapshot(doc)
}

// ListByParticipant fetches the participant's threads once and sorts and
// pages in memory; a participant's thread count is small. Threads without
// messages have a null lastMessageTime, so ordering in the query would not
// fall back to createdAt.
func (r *firestoreThreadRepository) ListByParticipant(ctx context.Context, who entity.Identity, limit, offset int) ([]entity.Thread, int64, error) {
	docs, err := r.client.Collection(threadsCollection).
		Where(participantField(who.Role), "==", who.UserID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, err
	}

	threads := make([]entity.Thread, 0, len(docs))
	for _, doc := range docs {
		t, err := threadFromSnapshot(doc)
		if err != nil {
			return nil, 0, err
		}
		threads = append(threads, t)
	}
	sortByActivity(threads)

	return pageOf(threads, limit, offset), int64(len(threads)), nil
}

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{client: client}
}

func (r *firestoreMessageRepository) ListByThread(ctx context.Context, q repository.MessageQuery) ([]entity.Message, int64, error) {
	threadRef := r.client.Collection(threadsCollection).Doc(q.ThreadID)
	threadDoc, err := threadRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, 0, repository.ErrNotFound
		}
		return nil, 0, err
	}
	thread, err := threadFromSnapshot(threadDoc)
	if err != nil {
		return nil, 0, err
	}

	dir, cmp := firestore.Desc, "<"
	if q.Sort == repository.SortAsc {
		dir, cmp = firestore.Asc, ">"
	}
	query := threadRef.Collection(messagesCollection).OrderBy("createdAt", dir).OrderBy(firestore.DocumentID, dir)
	if q.Before != nil {
		query = query.Where("createdAt", cmp, *q.Before)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	query = query.Limit(q.Limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := make([]entity.Message, 0, q.Limit)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		var d messageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, 0, fmt.Errorf("parse message %s: %w", doc.Ref.ID, err)
		}
		m, err := d.toEntity()
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}

	return messages, thread.MessageCount, nil
}

type firestoreUnreadLedger struct {
	client *firestore.Client
}

func NewFirestoreUnreadLedger(client *firestore.Client) repository.UnreadLedger {
	return &firestoreUnreadLedger{client: client}
}

// getThreadTx reads the thread inside tx; every ledger transaction reads it
// first so concurrent mutations of one thread conflict and retry.
func getThreadTx(tx *firestore.Transaction, ref *firestore.DocumentRef) (entity.Thread, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Thread{}, repository.ErrNotFound
		}
		return entity.Thread{}, err
	}
	return threadFromSnapshot(doc)
}

func (l *firestoreUnreadLedger) AppendMessage(ctx context.Context, msg entity.Message, preview string, now time.Time) (entity.Message, entity.Thread, error) {
	threadRef := l.client.Collection(threadsCollection).Doc(msg.ThreadID)

	var (
		stored entity.Message
		thread entity.Thread
	)
	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		t, err := getThreadTx(tx, threadRef)
		if err != nil {
			return err
		}

		m := msg
		m.Read = false
		m.CreatedAt = t.NextMessageTime(now)
		if err := tx.Create(threadRef.Collection(messagesCollection).Doc(m.ID), toMessageDoc(m)); err != nil {
			return err
		}

		counter := unreadField(m.SenderType.Counterpart())
		if err := tx.Update(threadRef, []firestore.Update{
			{Path: "lastMessage", Value: preview},
			{Path: "lastMessageTime", Value: m.CreatedAt},
			{Path: "messageCount", Value: firestore.Increment(1)},
			{Path: counter, Value: firestore.Increment(1)},
		}); err != nil {
			return err
		}

		t.LastMessage = preview
		ts := m.CreatedAt
		t.LastMessageTime = &ts
		t.MessageCount++
		if m.SenderType.Counterpart() == entity.RoleVendor {
			t.VendorUnreadCount++
		} else {
			t.CustomerUnreadCount++
		}
		stored, thread = m, t
		return nil
	})
	if err != nil {
		return entity.Message{}, entity.Thread{}, err
	}
	return stored, thread, nil
}

func (l *firestoreUnreadLedger) Acknowledge(ctx context.Context, threadID string, reader entity.Role, messageIDs []string) (repository.ReadReceipt, error) {
	threadRef := l.client.Collection(threadsCollection).Doc(threadID)
	counterpart := reader.Counterpart().SenderType()

	var wanted map[string]struct{}
	if len(messageIDs) > 0 {
		wanted = make(map[string]struct{}, len(messageIDs))
		for _, id := range messageIDs {
			wanted[id] = struct{}{}
		}
	}

	var receipt repository.ReadReceipt
	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := getThreadTx(tx, threadRef); err != nil {
			return err
		}

		unread, err := tx.Documents(threadRef.Collection(messagesCollection).
			Where("senderType", "==", counterpart).
			Where("read", "==", false)).GetAll()
		if err != nil {
			return err
		}

		// Reads are done; only writes from here on.
		var rc repository.ReadReceipt
		for _, doc := range unread {
			if wanted != nil {
				if _, ok := wanted[doc.Ref.ID]; !ok {
					rc.UnreadCount++
					continue
				}
			}
			if err := tx.Update(doc.Ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
			rc.Marked++
		}

		if err := tx.Update(threadRef, []firestore.Update{
			{Path: unreadField(reader), Value: rc.UnreadCount},
		}); err != nil {
			return err
		}
		receipt = rc
		return nil
	})
	if err != nil {
		return repository.ReadReceipt{}, err
	}
	return receipt, nil
}
