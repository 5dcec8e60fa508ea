package usecase

import (
	"context"
	"time"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
)

// UnreadReconciler is the only component that mutates unread counters.
type UnreadReconciler struct {
	ledger repository.UnreadLedger
	now    func() time.Time
}

func NewUnreadReconciler(ledger repository.UnreadLedger) *UnreadReconciler {
	return &UnreadReconciler{ledger: ledger, now: time.Now}
}

// RecordSend stores msg, refreshes the thread summary and increments the
// counterpart's counter in one atomic unit.
func (r *UnreadReconciler) RecordSend(ctx context.Context, msg entity.Message) (entity.Message, entity.Thread, error) {
	return r.ledger.AppendMessage(ctx, msg, entity.Preview(msg), r.now())
}

// RecordRead flips the reader's unread counterpart messages (only ids, when
// given) and recomputes the reader's counter to what is still unread.
func (r *UnreadReconciler) RecordRead(ctx context.Context, threadID string, reader entity.Role, ids []string) (repository.ReadReceipt, error) {
	return r.ledger.Acknowledge(ctx, threadID, reader, dedupe(ids))
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
