package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/db"
)

type tokenRepoPG struct{ pool *pgxpool.Pool }

func NewTokenRepoPG(pool *pgxpool.Pool) TokenRepository { return &tokenRepoPG{pool: pool} }

func (r *tokenRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *tokenRepoPG) Create(ctx context.Context, t *AccessToken) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.UserID, t.Token, t.ExpiresAt)
	if db.IsUniqueViolation(err) {
		return apperr.E(apperr.Conflict, "token value already issued")
	}
	return err
}

func (r *tokenRepoPG) GetByValue(ctx context.Context, tokenValue string) (*AccessToken, error) {
	var t AccessToken
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM access_tokens WHERE token = $1`, tokenValue).
		Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.E(apperr.NotFound, "token not recognized")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepoPG) DeleteByValue(ctx context.Context, tokenValue string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM access_tokens WHERE token = $1`, tokenValue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.E(apperr.NotFound, "token not recognized")
	}
	return nil
}

func (r *tokenRepoPG) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM access_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository { return &auditRepoPG{pool: pool} }

func (r *auditRepoPG) conn(ctx context.Context) db.Conn {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const auditCols = `id, user_id, action, timestamp, ip_address`

func (r *auditRepoPG) scanAudit(row pgx.Row) (*AuditLog, error) {
	var e AuditLog
	err := row.Scan(&e.ID, &e.UserID, &e.Action, &e.Timestamp, &e.IPAddress)
	if db.IsNoRows(err) {
		return nil, apperr.E(apperr.NotFound, "audit entry not found")
	}
	return &e, err
}

func (r *auditRepoPG) Insert(ctx context.Context, e *AuditLog) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, timestamp, ip_address)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.UserID, e.Action, e.Timestamp, e.IPAddress)
	return err
}

func (r *auditRepoPG) List(ctx context.Context, limit, offset int) ([]*AuditLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+auditCols+` FROM audit_logs ORDER BY timestamp DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *auditRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*AuditLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+auditCols+` FROM audit_logs
		WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *auditRepoPG) collect(rows pgx.Rows, total int) ([]*AuditLog, int, error) {
	var items []*AuditLog
	for rows.Next() {
		e, err := r.scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
