package config

import (
	"fmt"
	"os"
	"sort"

	"skyline/internal/models"

	"gopkg.in/yaml.v2"
)

// LoadServices reads the offered-services catalogue.
func LoadServices(path string) (models.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services: %w", err)
	}

	var file struct {
		Services []models.Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse services: %w", err)
	}

	if err := ValidateServices(file.Services); err != nil {
		return nil, err
	}

	sort.SliceStable(file.Services, func(i, j int) bool {
		return file.Services[i].SortOrder < file.Services[j].SortOrder
	})
	return file.Services, nil
}

func ValidateServices(services []models.Service) error {
	keys := make(map[string]bool)
	for _, s := range services {
		if s.Key == "" || s.Label == "" {
			return fmt.Errorf("service %q must have a key and a label", s.Label)
		}
		if keys[s.Key] {
			return fmt.Errorf("duplicate service key found: %s", s.Key)
		}
		keys[s.Key] = true
	}
	return nil
}
