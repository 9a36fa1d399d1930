package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

// MigrationFiles lists the migrations in fsys for direction ("up" or
// "down") in the order they must run.
func MigrationFiles(fsys fs.FS, direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("direction must be 'up' or 'down', got %q", direction)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}

	slices.Sort(files)
	if direction == "down" {
		slices.Reverse(files)
	}

	return files, nil
}

// Migrate executes every migration for direction and returns how many ran.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, direction string) (int, error) {
	files, err := MigrationFiles(fsys, direction)
	if err != nil {
		return 0, err
	}

	for i, name := range files {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return i, fmt.Errorf("read migration file %s: %w", name, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return i, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return len(files), nil
}
