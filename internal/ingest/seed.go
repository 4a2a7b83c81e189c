package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/pkg/textx"
)

type seedYAML struct {
	Items []string       `yaml:"items"`
	Texts []string       `yaml:"texts"`
	Data  []seedYAMLItem `yaml:"data"`
}

type seedYAMLItem struct {
	Text    string `yaml:"text"`
	Section string `yaml:"section"`
}

// LoadSeedFile reads a YAML seed file of canned knowledge snippets and
// returns one Document per distinct text. Accepted shapes: a bare list of
// strings, or a mapping with items/texts/data keys. Duplicate texts are
// dropped, keeping the first occurrence.
func LoadSeedFile(path string) ([]domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=ingest.LoadSeedFile: %w", err)
	}

	var doc seedYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		var ls []string
		if err2 := yaml.Unmarshal(b, &ls); err2 != nil {
			return nil, fmt.Errorf("op=ingest.LoadSeedFile: %w: yaml parse: %v", domain.ErrInvalidArgument, err)
		}
		doc.Texts = ls
	}

	seen := make(map[string]struct{})
	var texts []string
	add := func(s string) {
		s = textx.SanitizeText(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		texts = append(texts, s)
	}
	for _, it := range doc.Data {
		add(it.Text)
	}
	for _, s := range doc.Items {
		add(s)
	}
	for _, s := range doc.Texts {
		add(s)
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("op=ingest.LoadSeedFile: %w: no texts in %s", domain.ErrInvalidArgument, path)
	}

	docs := make([]domain.Document, 0, len(texts))
	base := filepath.Base(path)
	for _, t := range texts {
		docs = append(docs, domain.Document{Content: t, Meta: domain.Metadata{Source: base}})
	}
	return docs, nil
}
