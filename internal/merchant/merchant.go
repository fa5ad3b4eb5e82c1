// Package merchant keeps track of which merchants are Bezos-related
package merchant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/baely/bezos/internal/common/errors"
	"github.com/baely/bezos/internal/merchant/models"
)

// ErrNameRequired is returned when a merchant is marked without a name
var ErrNameRequired = errors.Mark(errors.ErrInvalidInput, "merchant name is required")

// Store persists merchants
type Store interface {
	FindByName(ctx context.Context, name string) (models.Merchant, error)
	Insert(ctx context.Context, m models.Merchant) (models.Merchant, error)
	Update(ctx context.Context, m models.Merchant) (models.Merchant, error)
	ListBezosRelated(ctx context.Context) ([]models.Merchant, error)
}

// Service implements the merchant queries and mutations
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a Service backed by store
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// MarkAsBezosRelated sets the flag on the named merchant, creating it if needed
func (s *Service) MarkAsBezosRelated(ctx context.Context, name string, isBezosRelated bool) (models.Merchant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Merchant{}, ErrNameRequired
	}

	existing, err := s.store.FindByName(ctx, name)
	switch {
	case err == nil:
		existing.IsBezosRelated = isBezosRelated
		updated, err := s.store.Update(ctx, existing)
		if err != nil {
			return models.Merchant{}, errors.Wrap(err, "marking merchant as bezos-related")
		}
		s.logger.Info("Updated merchant", "merchant", name, "is_bezos_related", isBezosRelated)
		return updated, nil

	case errors.Is(err, errors.ErrNotFound):
		created, err := s.store.Insert(ctx, models.Merchant{Name: name, IsBezosRelated: isBezosRelated})
		if err != nil {
			return models.Merchant{}, errors.Wrap(err, "marking merchant as bezos-related")
		}
		s.logger.Info("Created merchant", "merchant", name, "is_bezos_related", isBezosRelated)
		return created, nil

	default:
		return models.Merchant{}, errors.Wrap(err, "marking merchant as bezos-related")
	}
}

// BezosRelated returns every merchant currently flagged
func (s *Service) BezosRelated(ctx context.Context) ([]models.Merchant, error) {
	merchants, err := s.store.ListBezosRelated(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching bezos-related merchants")
	}
	return merchants, nil
}
