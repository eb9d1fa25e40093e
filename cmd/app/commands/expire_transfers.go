package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
)

// RunExpireTransfers expires up to limit past-due transfers, removing their wrapped keys and
// stored objects. In dry-run mode only the number of candidates is reported.
func RunExpireTransfers(
	ctx context.Context,
	broker transferUseCase.DownloadBroker,
	logger *slog.Logger,
	writer io.Writer,
	limit int,
	dryRun bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be a positive number, got: %d", limit)
	}

	logger.Info("expiring transfers", slog.Int("limit", limit), slog.Bool("dry_run", dryRun))

	count, err := broker.ExpireStale(ctx, limit, dryRun)
	if err != nil {
		return fmt.Errorf("failed to expire transfers: %w", err)
	}

	logger.Info("expiry completed", slog.Int("count", count), slog.Bool("dry_run", dryRun))

	text := "Successfully expired %d transfer(s)"
	if dryRun {
		text = "Dry-run mode: Would expire %d transfer(s)"
	}
	return report(writer, format, map[string]any{"count": count, "dry_run": dryRun}, text, count)
}
