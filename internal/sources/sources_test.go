package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if r.Len() != 6 {
		t.Fatalf("expected 6 default sources, got %d", r.Len())
	}

	want := []string{"global", "us", "uk", "in"}
	got := r.Countries()
	if len(got) != len(want) {
		t.Fatalf("Countries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Countries()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestForCountry(t *testing.T) {
	r := Default()

	uk := r.ForCountry("UK")
	if len(uk) != 2 {
		t.Fatalf("expected 2 uk sources, got %d", len(uk))
	}
	for _, s := range uk {
		if s.Country != "uk" {
			t.Errorf("expected country uk, got %q", s.Country)
		}
	}

	if n := len(r.ForCountry(Global)); n != r.Len() {
		t.Errorf("global should return all %d sources, got %d", r.Len(), n)
	}
	if n := len(r.ForCountry("")); n != r.Len() {
		t.Errorf("empty country should return all sources, got %d", n)
	}
	if n := len(r.ForCountry("fr")); n != 0 {
		t.Errorf("expected no fr sources, got %d", n)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	r := Default()
	all := r.All()
	all[0].Name = "mutated"

	if r.All()[0].Name == "mutated" {
		t.Error("registry should not be mutated through All()")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		sources []Source
		wantErr bool
	}{
		{"valid", []Source{{Name: "A", URL: "https://a/rss", Country: "US"}}, false},
		{"missing name", []Source{{URL: "https://a/rss", Country: "us"}}, true},
		{"missing url", []Source{{Name: "A", Country: "us"}}, true},
		{"missing country", []Source{{Name: "A", URL: "https://a/rss"}}, true},
		{"reserved country", []Source{{Name: "A", URL: "https://a/rss", Country: "global"}}, true},
		{"duplicate url", []Source{
			{Name: "A", URL: "https://a/rss", Country: "us"},
			{Name: "B", URL: "https://a/rss", Country: "uk"},
		}, true},
	}
	for _, tt := range tests {
		_, err := New(tt.sources)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: New() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	doc := "sources:\n  - name: Le Monde\n    url: https://www.lemonde.fr/rss/une.xml\n    country: FR\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if r.Len() != 1 || r.All()[0].Country != "fr" {
		t.Errorf("unexpected registry: %+v", r.All())
	}
	if !r.HasCountry("fr") || r.HasCountry("us") {
		t.Error("HasCountry mismatch for loaded registry")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
