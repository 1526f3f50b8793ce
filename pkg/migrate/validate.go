package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations on disk under dir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return validateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return validateFS(embedded, embeddedDir)
}

func validateFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[match[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name
		names = append(names, name)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	sort.Strings(names)
	for _, name := range names {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkSections(content); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

// checkSections requires both goose annotations and at least one SQL
// statement in the Up section.
func checkSections(content []byte) error {
	var (
		section  string
		upHasSQL bool
		sawUp    bool
		sawDown  bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "-- +goose Up":
			section, sawUp = "up", true
		case line == "-- +goose Down":
			section, sawDown = "down", true
		case line == "" || strings.HasPrefix(line, "--"):
		case section == "up":
			upHasSQL = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !sawUp:
		return fmt.Errorf("missing \"-- +goose Up\"")
	case !sawDown:
		return fmt.Errorf("missing \"-- +goose Down\"")
	case !upHasSQL:
		return fmt.Errorf("up section has no statements")
	}
	return nil
}
