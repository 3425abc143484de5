package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

var migrationTemplate = template.Must(template.New("migration").Parse(`-- Migration: {{.Name}}{{if .Down}} (Rollback){{end}}
-- Created: {{.Created}}
{{- if .Description}}
-- Description: {{.Description}}
{{- end}}

`))

// File is a created up/down migration pair
type File struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// Create writes an empty up/down pair named <timestamp>_<name> into dir
func Create(dir, name, description string, now time.Time) (*File, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format("20060102150405")
	base := filepath.Join(dir, version+"_"+slug)
	f := &File{
		Version:  version,
		Name:     slug,
		UpPath:   base + upSuffix,
		DownPath: base + downSuffix,
	}

	data := struct {
		Name, Created, Description string
		Down                       bool
	}{Name: slug, Created: now.UTC().Format(time.RFC3339), Description: description}

	if err := writeTemplate(f.UpPath, data); err != nil {
		return nil, err
	}
	data.Down = true
	if err := writeTemplate(f.DownPath, data); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, err
	}
	return f, nil
}

func writeTemplate(path string, data any) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()
	return migrationTemplate.Execute(out, data)
}

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9_]+`)
	separators  = regexp.MustCompile(`[\s\-]+`)
	underscores = regexp.MustCompile(`_+`)
)

// sanitizeName lowercases and turns spaces and dashes into single underscores
func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = separators.ReplaceAllString(s, "_")
	s = nonSlug.ReplaceAllString(s, "")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// List returns the base names of migrations that have an up file, in version order
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries)/2)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), upSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), upSuffix))
	}
	sort.Strings(names)
	return names, nil
}
