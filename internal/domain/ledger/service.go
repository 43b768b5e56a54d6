package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medifile/medifile/internal/domain/identity"
	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
	"github.com/medifile/medifile/internal/platform/middleware"
)

// UserLookup resolves a user id to its identity record. The identity
// repository satisfies this.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	tokens TokenRepository
	audits AuditRepository
	users  UserLookup
	signer *auth.Signer
	writer *Writer
	log    zerolog.Logger
}

func NewService(tokens TokenRepository, audits AuditRepository, users UserLookup, signer *auth.Signer, writer *Writer, log zerolog.Logger) *Service {
	return &Service{tokens: tokens, audits: audits, users: users, signer: signer, writer: writer, log: log}
}

// -- Tokens --

// IssueToken mints a signed session token for the user and records it so
// validation and revocation share one source of truth.
func (s *Service) IssueToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*AccessToken, error) {
	if ttl <= 0 {
		return nil, apperr.E(apperr.Validation, "ttl must be positive")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.E(apperr.Authorization, "user %s is deactivated", userID)
	}

	value, expiresAt, err := s.signer.Mint(u.ID, u.Role, ttl)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "mint token")
	}
	t := &AccessToken{UserID: u.ID, Token: value, ExpiresAt: expiresAt}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	s.Record(ctx, "token_issue")
	return t, nil
}

// Validate checks a presented token against the ledger. Unknown values are
// NotFound, live rows past expiry are ExpiredToken, and anything else yields
// the identity the token was minted for.
func (s *Service) Validate(ctx context.Context, tokenValue string) (auth.Identity, error) {
	t, err := s.tokens.GetByValue(ctx, tokenValue)
	if err != nil {
		return auth.Identity{}, err
	}
	if t.Expired(time.Now().UTC()) {
		return auth.Identity{}, apperr.E(apperr.ExpiredToken, "token expired at %s", t.ExpiresAt.Format(time.RFC3339))
	}
	claims, err := s.signer.Parse(tokenValue)
	if err != nil {
		return auth.Identity{}, apperr.E(apperr.NotFound, "token not recognized")
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject != t.UserID {
		return auth.Identity{}, apperr.E(apperr.NotFound, "token not recognized")
	}
	return auth.Identity{UserID: t.UserID, Role: claims.Role}, nil
}

// Revoke deletes the token row; subsequent Validate calls see NotFound.
func (s *Service) Revoke(ctx context.Context, tokenValue string) error {
	if err := s.tokens.DeleteByValue(ctx, tokenValue); err != nil {
		return err
	}
	s.Record(ctx, "token_revoke")
	return nil
}

// PurgeExpired removes token rows past their expiry. Run periodically; the
// rows are dead weight once Validate rejects them.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, time.Now().UTC())
}

// -- Audit trail --

// Record appends an audit entry for the actor in ctx. Fire and forget: the
// entry is queued for the background writer and failures never propagate.
func (s *Service) Record(ctx context.Context, action string) {
	e := &AuditLog{
		Action:    action,
		Timestamp: time.Now().UTC(),
		IPAddress: auth.ClientIPFromContext(ctx),
	}
	if id := auth.UserIDFromContext(ctx); id != uuid.Nil {
		e.UserID = &id
	}
	s.writer.Enqueue(e)
}

// RecordAccess adapts middleware access entries into the audit trail.
func (s *Service) RecordAccess(entry middleware.AuditEntry) {
	e := &AuditLog{
		Action:    entry.Action + " " + entry.Resource,
		Timestamp: entry.Timestamp,
		IPAddress: entry.IPAddress,
	}
	if id, err := uuid.Parse(entry.UserID); err == nil && id != uuid.Nil {
		e.UserID = &id
	}
	s.writer.Enqueue(e)
}

func (s *Service) ListAuditLogs(ctx context.Context, limit, offset int) ([]*AuditLog, int, error) {
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return nil, 0, apperr.E(apperr.Authorization, "audit trail is admin only")
	}
	return s.audits.List(ctx, limit, offset)
}

func (s *Service) ListAuditLogsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*AuditLog, int, error) {
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		return nil, 0, apperr.E(apperr.Authorization, "audit trail is admin only")
	}
	return s.audits.ListByUser(ctx, userID, limit, offset)
}

// Close flushes the audit writer. Call on shutdown after the server stops
// accepting requests.
func (s *Service) Close() {
	s.writer.Close()
}
