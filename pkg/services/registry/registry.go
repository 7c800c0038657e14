// Package registry discovers the shipped checks and resolves which of
// them a run will execute.
package registry

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks"
)

// AllToken selects every registered check when passed to Approved.
const AllToken = "ALL"

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registry is scanned once per engine run and immutable afterwards.
type Registry struct {
	mu         sync.RWMutex
	catalog    checks.Catalog
	discovered map[string][]domain.CheckDescriptor
	instances  map[string]checks.Check
}

// New returns an undiscovered registry over the given catalog.
func New(catalog checks.Catalog) *Registry {
	return &Registry{
		catalog:   catalog,
		instances: make(map[string]checks.Check),
	}
}

// Discover instantiates every catalog factory and returns descriptors
// grouped by provider tag. A factory that errors is logged and skipped;
// a duplicate identifier is rejected (first registration wins). An
// empty catalog is RegistryUnavailable.
func (r *Registry) Discover(ctx context.Context) (map[string][]domain.CheckDescriptor, error) {
	logger := zerolog.Ctx(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.discovered != nil {
		return r.discovered, nil
	}
	if len(r.catalog) == 0 {
		return nil, domain.RegistryUnavailable{Err: fmt.Errorf("catalog is empty")}
	}

	grouped := make(map[string][]domain.CheckDescriptor)
	for _, provider := range domain.ProviderOrder {
		for _, factory := range r.catalog[provider] {
			chk, err := factory()
			if err != nil {
				logger.Warn().Err(err).Str("provider", provider).Msg("skipping check that failed to load")
				continue
			}
			desc := chk.Descriptor()
			if err := validateIdentifier(desc.Identifier); err != nil {
				logger.Warn().Err(err).Str("check", desc.Identifier).Msg("skipping check with invalid identifier")
				continue
			}
			if _, exists := r.instances[desc.Identifier]; exists {
				logger.Warn().Str("check", desc.Identifier).Msg("duplicate check identifier, keeping first registration")
				continue
			}
			r.instances[desc.Identifier] = chk
			grouped[provider] = append(grouped[provider], desc)
		}
		sort.Slice(grouped[provider], func(i, j int) bool {
			return grouped[provider][i].Identifier < grouped[provider][j].Identifier
		})
	}

	r.discovered = grouped
	return grouped, nil
}

// Approved intersects the enabled selection with what was discovered,
// keeping discovery order. The AllToken selects everything. Disabled
// checks are removed silently; unknown names are returned as
// CheckNotFound errors alongside the approved set.
func (r *Registry) Approved(enabled []string, available map[string][]domain.CheckDescriptor) ([]domain.CheckDescriptor, []error) {
	selectAll := false
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		if strings.EqualFold(name, AllToken) {
			selectAll = true
			continue
		}
		want[name] = false
	}

	var approved []domain.CheckDescriptor
	for _, provider := range domain.ProviderOrder {
		for _, desc := range available[provider] {
			named := false
			if _, ok := want[desc.Identifier]; ok {
				want[desc.Identifier] = true
				named = true
			}
			// Disabled checks are removed silently, even when named.
			if desc.Flags.Disabled {
				continue
			}
			if !named && !selectAll {
				continue
			}
			approved = append(approved, desc)
		}
	}

	var errs []error
	for name, found := range want {
		if !found {
			errs = append(errs, domain.CheckNotFound{Identifier: name})
		}
	}
	return approved, errs
}

// Check returns the discovered instance for an identifier.
func (r *Registry) Check(identifier string) (checks.Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chk, ok := r.instances[identifier]
	return chk, ok
}

// Descriptor returns the discovered descriptor for an identifier.
func (r *Registry) Descriptor(identifier string) (domain.CheckDescriptor, bool) {
	chk, ok := r.Check(identifier)
	if !ok {
		return domain.CheckDescriptor{}, false
	}
	return chk.Descriptor(), true
}

func validateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier is empty")
	}
	if len(id) > domain.MaxIdentifierLen {
		return fmt.Errorf("identifier %q exceeds %d characters", id, domain.MaxIdentifierLen)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("identifier %q is not lowercase snake case", id)
	}
	return nil
}
