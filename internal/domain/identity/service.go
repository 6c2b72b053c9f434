package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
)

type Service struct {
	users  Repository
	logger zerolog.Logger
}

func NewService(users Repository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

func (s *Service) Create(ctx context.Context, username, role, firstName, lastName string) (*User, error) {
	u := &User{
		ID:        uuid.New(),
		Username:  username,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperr.Conflict("username %s is taken", username)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("username", username).
		Str("role", role).
		Msg("user created")
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, username)
}

// IDByUsername resolves a username to a user id, for the patient-facing
// bill endpoints.
func (s *Service) IDByUsername(ctx context.Context, username string) (uuid.UUID, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
