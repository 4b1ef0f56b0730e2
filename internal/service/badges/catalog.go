package badges

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/trailquest/trailquest/internal/models"
)

//go:embed badges.yaml
var defaultCatalog []byte

// CatalogEntry is one badge definition in the YAML catalog.
type CatalogEntry struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Icon        string               `yaml:"icon"`
	Criteria    models.BadgeCriteria `yaml:"criteria"`
}

// ParseCatalog decodes a YAML badge catalog.
func ParseCatalog(data []byte) ([]CatalogEntry, error) {
	var catalog struct {
		Badges []CatalogEntry `yaml:"badges"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse badge catalog: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Badges))
	for _, entry := range catalog.Badges {
		if entry.Name == "" {
			return nil, fmt.Errorf("badge catalog entry without name")
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("duplicate badge %q in catalog", entry.Name)
		}
		seen[entry.Name] = true
	}
	return catalog.Badges, nil
}

// SeedCatalog upserts the built-in catalog by name. Returns how many badges were created.
func (s *Service) SeedCatalog(ctx context.Context) (int, error) {
	return s.SeedFrom(ctx, defaultCatalog)
}

// SeedFrom upserts the badges of a YAML catalog by name.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) SeedFrom(ctx context.Context, data []byte) (int, error) {
	entries, err := ParseCatalog(data)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, entry := range entries {
		criteria, err := json.Marshal(entry.Criteria)
		if err != nil {
			return created, fmt.Errorf("failed to encode criteria of %q: %w", entry.Name, err)
		}

		isNew, err := s.badgeRepo.UpsertByName(&models.Badge{
			Name:        entry.Name,
			Description: entry.Description,
			Icon:        entry.Icon,
			Criteria:    criteria,
		})
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}

	s.log.Info().
		Int("badges", len(entries)).
		Int("created", created).
		Msg("Badge catalog seeded")

	return created, nil
}
