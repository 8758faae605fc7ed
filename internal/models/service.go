package models

import "strings"

// Service is one entry of the offered-services catalogue.
type Service struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	LabelSq     string `yaml:"label_sq" json:"label_sq"`
	Description string `yaml:"description" json:"description,omitempty"`
	SortOrder   int    `yaml:"sort_order" json:"sort_order"`
}

// LabelFor returns the label in the requested language.
func (s Service) LabelFor(lang Language) string {
	if lang == LangAlbanian && s.LabelSq != "" {
		return s.LabelSq
	}
	return s.Label
}

// Catalogue is the ordered list of offered services.
type Catalogue []Service

// Default is the service preselected in the booking form.
func (c Catalogue) Default() string {
	if len(c) == 0 {
		return "Drone Shooting"
	}
	return c[0].Label
}

// Match resolves a loose name ("Drone", "drone", "Drone Shooting") to the
// stored English label. Unknown names are returned unchanged.
func (c Catalogue) Match(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return name
	}
	for _, s := range c {
		if n == strings.ToLower(s.Key) || n == strings.ToLower(s.Label) || n == strings.ToLower(s.LabelSq) {
			return s.Label
		}
	}
	for _, s := range c {
		if strings.HasPrefix(strings.ToLower(s.Label), n) {
			return s.Label
		}
	}
	return name
}
