// Package commands implements the sealdrop CLI subcommands. Each Run function takes its
// collaborators explicitly so it can be tested without a container.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/sealdrop/internal/app"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unsupported output format %q: use 'text' or 'json'", format)
	}
	return nil
}

// report writes data as indented JSON, or the formatted text line otherwise.
func report(w io.Writer, format string, data any, text string, args ...any) error {
	if format == formatJSON {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	_, err := fmt.Fprintf(w, text+"\n", args...)
	return err
}

func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

func closeMigrate(m *migrate.Migrate, logger *slog.Logger) {
	sourceErr, dbErr := m.Close()
	if sourceErr != nil || dbErr != nil {
		logger.Error("failed to close migrate",
			slog.Any("source_error", sourceErr),
			slog.Any("database_error", dbErr),
		)
	}
}
