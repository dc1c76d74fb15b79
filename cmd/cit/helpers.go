package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/export"
	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/service"
	"github.com/Veraticus/p300-cit/internal/storage"
	"github.com/spf13/viper"
)

const defaultDBPath = "$HOME/.local/share/cit/cit.db"

// initStorage opens the database with path expansion and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store service.Storage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// outputDirectory returns where exports are written.
func outputDirectory() string {
	dir := viper.GetString("output.directory")
	if dir == "" {
		dir = "data"
	}
	return config.ExpandPath(dir)
}

func parseFormats(names []string) ([]export.Format, error) {
	formats := make([]export.Format, 0, len(names))
	for _, name := range names {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// exportSession writes the trial sequence in every requested format and
// returns the written paths.
func exportSession(session *model.Session, formats []export.Format, dir string, now time.Time) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, export.OutputFilename(session.Participant, "sequence", f, now))
		write := func(w io.Writer) error { return export.WriteTrialsCSV(w, session) }
		if f == export.FormatJSON {
			write = func(w io.Writer) error { return export.WriteTrialsJSON(w, session) }
		}
		if err := export.WriteFile(path, write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// exportResult writes a classification result in every requested format.
func exportResult(result *model.ClassificationResult, participant model.Participant, formats []export.Format, dir string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, export.OutputFilename(participant, "classification", f, result.CreatedAt.Local()))
		write := func(w io.Writer) error { return export.WriteResultCSV(w, result) }
		if f == export.FormatJSON {
			write = func(w io.Writer) error { return export.WriteResultJSON(w, result) }
		}
		if err := export.WriteFile(path, write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
