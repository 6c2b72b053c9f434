package cptcode

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
)

type Service struct {
	codes  Repository
	logger zerolog.Logger
}

func NewService(codes Repository, logger zerolog.Logger) *Service {
	return &Service{codes: codes, logger: logger}
}

// Add puts a new code in the catalog. A code string that is active, or that
// was ever deleted, cannot be added.
func (s *Service) Add(ctx context.Context, code, description string, cost int) (*CPTCode, error) {
	c := &CPTCode{ID: uuid.New(), Code: code, Description: description, Cost: cost}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	retired, err := s.codes.InHistory(ctx, code)
	if err != nil {
		return nil, err
	}
	if retired {
		return nil, apperr.Conflict("code already existed previously")
	}
	if _, err := s.codes.GetByCode(ctx, code); err == nil {
		return nil, apperr.Conflict("cpt code %s already exists", code)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	if err := s.codes.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("cpt_code_id", c.ID.String()).
		Str("code", code).
		Int("cost", cost).
		Msg("cpt code added")
	return c, nil
}

// Edit updates the description and cost of an existing code. The code string
// itself is immutable.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, code, description string, cost int) (*CPTCode, error) {
	existing, err := s.codes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if code != existing.Code {
		return nil, apperr.Validation("The CPT Code number must be the same.")
	}
	existing.Description = description
	existing.Cost = cost
	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := s.codes.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("cpt_code_id", id.String()).
		Str("code", code).
		Int("cost", cost).
		Msg("cpt code edited")
	return existing, nil
}

// Delete retires a code. Its code string goes to history and is blocked from
// re-use forever.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.codes.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("cpt_code_id", id.String()).Msg("cpt code deleted")
	return nil
}

// GetCode returns an active catalog entry by id.
func (s *Service) GetCode(ctx context.Context, id uuid.UUID) (*CPTCode, error) {
	return s.codes.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*CPTCode, int, error) {
	return s.codes.List(ctx, limit, offset)
}

func (s *Service) ListHistory(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error) {
	return s.codes.ListHistory(ctx, limit, offset)
}
