// Package ingest keeps the content store populated: it fetches configured
// feed sources on an interval and converts entries into content items.
package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one configured feed source.
type Source struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Category string   `yaml:"category"`
	TopicID  string   `yaml:"topic_id"`
	Tags     []string `yaml:"tags"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the YAML source list.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	for i, s := range f.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("source %d is missing name or url", i)
		}
		if s.Category == "" {
			f.Sources[i].Category = "general"
		}
	}
	return f.Sources, nil
}
