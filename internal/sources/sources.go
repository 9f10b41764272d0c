// Package sources holds the immutable table of feeds polled by the fetch
// cycle, keyed by source name and country.
package sources

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Global is the country selector meaning "every country".
const Global = "global"

//go:embed feeds.yaml
var defaultFeeds []byte

// Source is one syndication feed.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Country string `yaml:"country"`
}

type file struct {
	Sources []Source `yaml:"sources"`
}

// Registry is a read-only list of sources. Accessors return copies.
type Registry struct {
	sources []Source
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := Parse(defaultFeeds)
	if err != nil {
		panic(fmt.Sprintf("sources: invalid embedded feeds.yaml: %v", err))
	}
	return r
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return r, nil
}

// LoadOrDefault loads path when set, otherwise returns Default().
func LoadOrDefault(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f.Sources)
}

// New validates sources and builds a registry from them.
func New(list []Source) (*Registry, error) {
	seen := make(map[string]bool, len(list))
	out := make([]Source, 0, len(list))
	for i, s := range list {
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		s.Country = strings.ToLower(strings.TrimSpace(s.Country))

		switch {
		case s.Name == "":
			return nil, fmt.Errorf("source %d: name is required", i)
		case s.URL == "":
			return nil, fmt.Errorf("source %q: url is required", s.Name)
		case s.Country == "":
			return nil, fmt.Errorf("source %q: country is required", s.Name)
		case s.Country == Global:
			return nil, fmt.Errorf("source %q: country %q is reserved", s.Name, Global)
		case seen[s.URL]:
			return nil, fmt.Errorf("source %q: duplicate url %s", s.Name, s.URL)
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return &Registry{sources: out}, nil
}

// All returns every source in table order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.sources...)
}

// ForCountry returns the sources for one country; Global or "" returns all.
func (r *Registry) ForCountry(country string) []Source {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" || country == Global {
		return r.All()
	}
	var out []Source
	for _, s := range r.sources {
		if s.Country == country {
			out = append(out, s)
		}
	}
	return out
}

// Countries returns Global followed by each distinct country in table order.
func (r *Registry) Countries() []string {
	out := []string{Global}
	seen := map[string]bool{Global: true}
	for _, s := range r.sources {
		if !seen[s.Country] {
			seen[s.Country] = true
			out = append(out, s.Country)
		}
	}
	return out
}

// HasCountry reports whether country is Global or used by some source.
func (r *Registry) HasCountry(country string) bool {
	for _, c := range r.Countries() {
		if c == country {
			return true
		}
	}
	return false
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.sources)
}
