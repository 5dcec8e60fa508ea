package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

const threadColumns = `id::text, customer_id, vendor_id, booking_id, last_message, last_message_time,
	customer_unread_count, vendor_unread_count, message_count, created_at`

const messageColumns = `id::text, thread_id::text, sender_id, sender_type, content, attachments, is_read, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (entity.Thread, error) {
	var t entity.Thread
	err := row.Scan(&t.ID, &t.CustomerID, &t.VendorID, &t.BookingID, &t.LastMessage, &t.LastMessageTime,
		&t.CustomerUnreadCount, &t.VendorUnreadCount, &t.MessageCount, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.Thread{}, repository.ErrNotFound
	}
	if err != nil {
		return entity.Thread{}, err
	}
	if t.LastMessageTime != nil {
		ts := t.LastMessageTime.UTC()
		t.LastMessageTime = &ts
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func scanMessage(row rowScanner) (entity.Message, error) {
	var (
		m          entity.Message
		senderType string
		rawAtts    []byte
	)
	if err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &senderType, &m.Content, &rawAtts, &m.Read, &m.CreatedAt); err != nil {
		return entity.Message{}, err
	}
	role, err := entity.ParseRole(senderType)
	if err != nil {
		return entity.Message{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	m.SenderType = role
	m.Attachments = []entity.Attachment{}
	if len(rawAtts) > 0 {
		if err := json.Unmarshal(rawAtts, &m.Attachments); err != nil {
			return entity.Message{}, fmt.Errorf("message %s attachments: %w", m.ID, err)
		}
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// participantColumn maps a role to its column. The result is a constant and
// never contains caller input.
func participantColumn(r entity.Role) string {
	if r == entity.RoleVendor {
		return "vendor_id"
	}
	return "customer_id"
}

type postgresThreadRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresThreadRepository(pool *pgxpool.Pool) repository.ThreadRepository {
	return &postgresThreadRepository{pool: pool}
}

func (r *postgresThreadRepository) Create(ctx context.Context, t entity.Thread) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO threads (id, customer_id, vendor_id, booking_id, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`, t.ID, t.CustomerID, t.VendorID, t.BookingID, t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repository.ErrConflict
	}
	return err
}

func (r *postgresThreadRepository) GetByID(ctx context.Context, id string) (entity.Thread, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = $1::uuid`, id)
	return scanThread(row)
}

func (r *postgresThreadRepository) FindByParticipants(ctx context.Context, customerID, vendorID string, bookingID *string) (entity.Thread, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE customer_id = $1 AND vendor_id = $2 AND COALESCE(booking_id, '') = COALESCE($3, '')
	`, customerID, vendorID, bookingID)
	return scanThread(row)
}

func (r *postgresThreadRepository) ListByParticipant(ctx context.Context, who entity.Identity, limit, offset int) ([]entity.Thread, int64, error) {
	column := participantColumn(who.Role)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM threads WHERE `+column+` = $1`, who.UserID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+threadColumns+`
		FROM threads
		WHERE `+column+` = $1
		ORDER BY COALESCE(last_message_time, created_at) DESC, id
		LIMIT $2 OFFSET $3
	`, who.UserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	threads := make([]entity.Thread, 0, limit)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, 0, err
		}
		threads = append(threads, t)
	}
	return threads, total, rows.Err()
}

type postgresMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(pool *pgxpool.Pool) repository.MessageRepository {
	return &postgresMessageRepository{pool: pool}
}

func (r *postgresMessageRepository) ListByThread(ctx context.Context, q repository.MessageQuery) ([]entity.Message, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE thread_id = $1::uuid`, q.ThreadID).Scan(&total); err != nil {
		return nil, 0, err
	}

	var sb strings.Builder
	args := []any{q.ThreadID}
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE thread_id = $1::uuid`)

	order := "DESC"
	cmp := "<"
	if q.Sort == repository.SortAsc {
		order = "ASC"
		cmp = ">"
	}
	if q.Before != nil {
		args = append(args, *q.Before)
		fmt.Fprintf(&sb, " AND created_at %s $%d", cmp, len(args))
	}
	args = append(args, q.Limit, q.Offset)
	fmt.Fprintf(&sb, " ORDER BY created_at %s, id %s LIMIT $%d OFFSET $%d", order, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]entity.Message, 0, q.Limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, m)
	}
	return messages, total, rows.Err()
}

type postgresUnreadLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresUnreadLedger(pool *pgxpool.Pool) repository.UnreadLedger {
	return &postgresUnreadLedger{pool: pool}
}

// lockThread takes the row lock every counter mutation serializes on.
func lockThread(ctx context.Context, tx pgx.Tx, threadID string) (*time.Time, error) {
	var last *time.Time
	err := tx.QueryRow(ctx, `SELECT last_message_time FROM threads WHERE id = $1::uuid FOR UPDATE`, threadID).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return last, err
}

func (l *postgresUnreadLedger) AppendMessage(ctx context.Context, msg entity.Message, preview string, now time.Time) (entity.Message, entity.Thread, error) {
	atts, err := json.Marshal(msg.Attachments)
	if err != nil {
		return entity.Message{}, entity.Thread{}, fmt.Errorf("encode attachments: %w", err)
	}
	if msg.Attachments == nil {
		atts = []byte("[]")
	}

	var thread entity.Thread
	err = pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		last, err := lockThread(ctx, tx, msg.ThreadID)
		if err != nil {
			return err
		}
		msg.Read = false
		msg.CreatedAt = entity.Thread{LastMessageTime: last}.NextMessageTime(now)

		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, thread_id, sender_id, sender_type, content, attachments, is_read, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::jsonb, false, $7)
		`, msg.ID, msg.ThreadID, msg.SenderID, msg.SenderType.SenderType(), msg.Content, string(atts), msg.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		row := tx.QueryRow(ctx, `
			UPDATE threads SET
				last_message = $2,
				last_message_time = $3,
				message_count = message_count + 1,
				customer_unread_count = customer_unread_count + CASE WHEN $4::text = 'CUSTOMER' THEN 1 ELSE 0 END,
				vendor_unread_count = vendor_unread_count + CASE WHEN $4::text = 'VENDOR' THEN 1 ELSE 0 END
			WHERE id = $1::uuid
			RETURNING `+threadColumns,
			msg.ThreadID, preview, msg.CreatedAt, msg.SenderType.Counterpart().SenderType())
		thread, err = scanThread(row)
		return err
	})
	if err != nil {
		return entity.Message{}, entity.Thread{}, err
	}
	return msg, thread, nil
}

func (l *postgresUnreadLedger) Acknowledge(ctx context.Context, threadID string, reader entity.Role, messageIDs []string) (repository.ReadReceipt, error) {
	counterpart := reader.Counterpart().SenderType()

	var receipt repository.ReadReceipt
	err := pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := lockThread(ctx, tx, threadID); err != nil {
			return err
		}

		var (
			tag pgconn.CommandTag
			err error
		)
		if len(messageIDs) > 0 {
			tag, err = tx.Exec(ctx, `
				UPDATE messages SET is_read = true
				WHERE thread_id = $1::uuid AND sender_type = $2 AND NOT is_read AND id::text = ANY($3::text[])
			`, threadID, counterpart, messageIDs)
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE messages SET is_read = true
				WHERE thread_id = $1::uuid AND sender_type = $2 AND NOT is_read
			`, threadID, counterpart)
		}
		if err != nil {
			return fmt.Errorf("flip read flags: %w", err)
		}
		receipt.Marked = int(tag.RowsAffected())

		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM messages
			WHERE thread_id = $1::uuid AND sender_type = $2 AND NOT is_read
		`, threadID, counterpart).Scan(&receipt.UnreadCount); err != nil {
			return fmt.Errorf("count unread: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE threads SET
				customer_unread_count = CASE WHEN $2::text = 'CUSTOMER' THEN $3::int ELSE customer_unread_count END,
				vendor_unread_count = CASE WHEN $2::text = 'VENDOR' THEN $3::int ELSE vendor_unread_count END
			WHERE id = $1::uuid
		`, threadID, reader.SenderType(), receipt.UnreadCount)
		return err
	})
	if err != nil {
		return repository.ReadReceipt{}, err
	}
	return receipt, nil
}
