package migration

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Migration is a single versioned schema change.
type Migration struct {
	Version     string
	Description string
	File        string
	SQL         string
}

// Embedded returns the migrations shipped with the binary.
func Embedded() ([]Migration, error) {
	return Scan(embedded, "sql")
}

// Scan reads every .sql file in dir, validates its name and returns the
// migrations ordered by numeric version. Other files are ignored.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &MigrationError{File: dir, Operation: "read directory", Err: err}
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		matches := fileNamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, &MigrationError{File: entry.Name(), Operation: "validate filename",
				Err: fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, entry.Name())}
		}
		version, description := matches[1], matches[2]
		if previous, ok := seen[version]; ok {
			return nil, &MigrationError{Version: version, File: entry.Name(), Operation: "check duplicates",
				Err: fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, previous)}
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, &MigrationError{Version: version, File: entry.Name(), Operation: "read file", Err: err}
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, &MigrationError{Version: version, File: entry.Name(), Operation: "read file",
				Err: fmt.Errorf("%w: empty file", ErrInvalidMigrationFile)}
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			File:        entry.Name(),
			SQL:         string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

// statements splits a migration body on semicolons, dropping comments and
// blank statements.
func statements(body string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var result []string
	for _, stmt := range strings.Split(cleaned.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
