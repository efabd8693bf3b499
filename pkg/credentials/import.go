package credentials

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// importEntry is one platform block in a bulk-import document.
type importEntry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// placeholders are values that indicate an entry was copied from a template
// and never filled in. Matching is case-insensitive.
var placeholders = map[string]bool{
	"":              true,
	"...":           true,
	"changeme":      true,
	"username":      true,
	"password":      true,
	"your_username": true,
	"your_password": true,
	"your_email":    true,
}

// ImportYAML reads a document mapping platform names to credential pairs
// and saves every usable entry. Entries that still carry an obvious
// placeholder value are skipped with a warning rather than failing the
// whole import. It returns the number of platforms imported.
//
// Document shape:
//
//	twitter:
//	  username: someone@example.com
//	  password: hunter2
func (s *Store) ImportYAML(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc map[string]importEntry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("failed to parse import file: %w", err)
	}

	imported := 0
	for platform, entry := range doc {
		if isPlaceholder(entry.Username) || isPlaceholder(entry.Password) {
			s.log.Warn("skipping placeholder credentials", "platform", platform)
			continue
		}
		if err := s.Save(platform, entry.Username, entry.Password); err != nil {
			return imported, fmt.Errorf("failed to import %s: %w", platform, err)
		}
		imported++
	}

	return imported, nil
}

func isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if placeholders[v] {
		return true
	}
	// Template markers like <username> or {{password}}.
	return strings.HasPrefix(v, "<") || strings.HasPrefix(v, "{{")
}
