package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the server-side session record for a minted token. A token
// is live while its row exists and expires_at is in the future; revocation
// deletes the row.
type AccessToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// AuditLog is one append-only row in the access trail. UserID is nullable:
// the trail outlives the accounts it mentions.
type AuditLog struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Action    string     `db:"action" json:"action"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
}
