// Package store exports identified records as YAML files.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"novelmeta/src/internal/schema"
)

// NovelsDir is the subdirectory records are written under.
const NovelsDir = "novels"

var safeID = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// recordPath returns the path of the YAML file for a record under root.
func recordPath(root string, id string) string {
	return filepath.Join(root, NovelsDir, id+".yaml")
}

// WriteRecord validates and writes rec to <root>/novels/<id>.yaml.
func WriteRecord(root string, rec schema.Record) (string, error) {
	id := strings.TrimSpace(rec.ID)
	if !safeID.MatchString(id) {
		return "", fmt.Errorf("invalid record id %q", rec.ID)
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	subdir := filepath.Join(root, NovelsDir)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return "", err
	}
	path := recordPath(root, id)
	buf, err := yaml.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
