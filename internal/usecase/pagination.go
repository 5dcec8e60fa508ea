package usecase

import (
	"strings"
	"time"

	"vendorchat/internal/domain/entity"
	"vendorchat/internal/domain/repository"
	"vendorchat/pkg/errors"
	"vendorchat/pkg/utils"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	// DefaultSort is newest first.
	DefaultSort = repository.SortDesc
)

// MessagePageRequest is a caller's history request before normalization.
type MessagePageRequest struct {
	ThreadID        string
	Limit           int
	Offset          int
	Before          *time.Time
	Sort            string
	AcknowledgeRead bool
}

// NormalizeMessageQuery clamps limit to [1, MaxMessageLimit], defaults the
// sort to DefaultSort and rejects unknown sort values.
func NormalizeMessageQuery(req MessagePageRequest) (repository.MessageQuery, error) {
	q := repository.MessageQuery{
		ThreadID: req.ThreadID,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	switch {
	case q.Limit == 0:
		q.Limit = DefaultMessageLimit
	case q.Limit < 1:
		q.Limit = 1
	case q.Limit > MaxMessageLimit:
		q.Limit = MaxMessageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	switch repository.SortOrder(strings.ToLower(req.Sort)) {
	case "":
		q.Sort = DefaultSort
	case repository.SortAsc:
		q.Sort = repository.SortAsc
	case repository.SortDesc:
		q.Sort = repository.SortDesc
	default:
		return repository.MessageQuery{}, errors.BadRequest("sort must be one of: asc desc", nil)
	}

	if req.Before != nil {
		before := req.Before.UTC()
		q.Before = &before
	}
	return q, nil
}

// PageInfo describes where a page sits in the thread's history.
type PageInfo struct {
	Total      int64   `json:"total"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	HasMore    bool    `json:"hasMore"`
	NextBefore *string `json:"nextBefore,omitempty"`
}

// newPageInfo computes hasMore from the thread total and, for a full page,
// the cursor that continues in the same direction.
func newPageInfo(q repository.MessageQuery, total int64, page []entity.Message) PageInfo {
	info := PageInfo{
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: total > int64(q.Offset+len(page)),
	}
	if len(page) > 0 && len(page) == q.Limit {
		cursor := utils.FormatCursor(page[len(page)-1].CreatedAt)
		info.NextBefore = &cursor
	}
	return info
}
