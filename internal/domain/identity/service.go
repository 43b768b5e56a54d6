package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
)

// AuditRecorder receives security-relevant actions. Recording is
// fire-and-forget; implementations must not fail the calling operation.
type AuditRecorder interface {
	Record(ctx context.Context, action string)
}

type Service struct {
	users    UserRepository
	profiles ProfileRepository
	audit    AuditRecorder
}

func NewService(users UserRepository, profiles ProfileRepository, audit AuditRecorder) *Service {
	return &Service{users: users, profiles: profiles, audit: audit}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return apperr.E(apperr.Validation, "a valid email is required")
	}
	if !auth.ValidRole(u.Role) {
		return apperr.E(apperr.Validation, "invalid role: %s", u.Role)
	}
	u.Active = true
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	s.audit.Record(ctx, "user_create")
	return nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// DeactivateUser soft-deletes: the row stays while appointments,
// prescriptions, and audit entries still reference it.
func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.audit.Record(ctx, "user_deactivate")
	return nil
}

func (s *Service) ReactivateUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.audit.Record(ctx, "user_reactivate")
	return nil
}

func (s *Service) UpsertProfile(ctx context.Context, p *UserProfile) error {
	if p.UserID == uuid.Nil {
		return apperr.E(apperr.Validation, "user_id is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return apperr.E(apperr.Validation, "first_name and last_name are required")
	}
	if _, err := s.users.GetByID(ctx, p.UserID); err != nil {
		return err
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return err
	}
	s.audit.Record(ctx, "profile_update")
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}
