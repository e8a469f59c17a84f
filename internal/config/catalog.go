package config

import (
	_ "embed"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/yaml.v3"

	"luckydraw/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// TierSpec is one tier entry of a catalog file.
type TierSpec struct {
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Quota int    `yaml:"quota"`
	Order int    `yaml:"order"`
}

func (t TierSpec) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required),
		validation.Field(&t.Quota, validation.Required, validation.Min(1)),
	)
}

// Catalog is the prize configuration new sessions start from.
type Catalog struct {
	Tiers        []TierSpec `yaml:"tiers"`
	Participants []string   `yaml:"participants"`
}

func (c Catalog) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Tiers, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, t := range c.Tiers {
		if seen[t.Name] {
			return fmt.Errorf("tier %q is listed twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// PrizeTiers converts the catalog to model tiers.
func (c Catalog) PrizeTiers() []models.PrizeTier {
	out := make([]models.PrizeTier, len(c.Tiers))
	for i, t := range c.Tiers {
		out[i] = models.PrizeTier{Name: t.Name, Icon: t.Icon, Quota: t.Quota, Order: t.Order}
	}
	return out
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// LoadCatalog reads the catalog at path, or the built-in one when path is
// empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}
