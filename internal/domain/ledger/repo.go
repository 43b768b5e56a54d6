package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TokenRepository interface {
	Create(ctx context.Context, t *AccessToken) error
	GetByValue(ctx context.Context, tokenValue string) (*AccessToken, error)
	DeleteByValue(ctx context.Context, tokenValue string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type AuditRepository interface {
	// Insert appends one row. There is no update or delete.
	Insert(ctx context.Context, e *AuditLog) error
	List(ctx context.Context, limit, offset int) ([]*AuditLog, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*AuditLog, int, error)
}
