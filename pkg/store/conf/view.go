package conf

import (
	"context"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/adapters"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

// View projects the persisted configuration into the read-only shape
// the engine consumes.
func (s *Store) View(ctx context.Context) (domain.Config, error) {
	row, err := s.Configuration(ctx)
	if err != nil {
		return domain.Config{}, err
	}
	params, err := s.CheckParameters(ctx)
	if err != nil {
		return domain.Config{}, err
	}
	return adapters.MapStoreConfigToDomain(row, params), nil
}
