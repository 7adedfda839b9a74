package domains

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StatusTechnology is one technology detected on a domain.
type StatusTechnology struct {
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// StatusRecord is one entry of a domain-status export: a crawled domain with
// its page metadata and the technologies detected on it.
type StatusRecord struct {
	Domain       string             `yaml:"domain" json:"domain"`
	Title        string             `yaml:"title,omitempty" json:"title,omitempty"`
	Keywords     string             `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Description  string             `yaml:"description,omitempty" json:"description,omitempty"`
	Technologies []StatusTechnology `yaml:"technologies,omitempty" json:"technologies,omitempty"`
}

// LoadStatusFile parses a domain-status export. Every domain is canonicalized
// through Normalize; entries whose domain fails validation are skipped with a
// warning, and duplicates keep the first occurrence.
func LoadStatusFile(path string) ([]StatusRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read domain status file %s", path)
	}
	var entries []StatusRecord
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "parse domain status file %s", path)
	}

	seen := map[string]bool{}
	out := entries[:0]
	for _, rec := range entries {
		root := Normalize(rec.Domain)
		if root == "" {
			zap.L().Warn("skipping domain status entry with invalid domain",
				zap.String("domain", rec.Domain))
			continue
		}
		if seen[root] {
			continue
		}
		seen[root] = true
		rec.Domain = root

		techs := rec.Technologies[:0]
		for _, tech := range rec.Technologies {
			if tech.Name == "" {
				continue
			}
			techs = append(techs, tech)
		}
		rec.Technologies = techs
		out = append(out, rec)
	}
	return out, nil
}
