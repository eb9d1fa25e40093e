package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	authUseCase "github.com/allisson/sealdrop/internal/auth/usecase"
	transferUseCase "github.com/allisson/sealdrop/internal/transfer/usecase"
)

// parseActorID returns uuid.Nil for an empty flag so operator actions without an account are
// still audited.
func parseActorID(actorID string) (uuid.UUID, error) {
	if actorID == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid actor id: %w", err)
	}
	return id, nil
}

// RunUnlockTransfer clears the failed-attempt counter of the transfer behind urlToken.
func RunUnlockTransfer(
	ctx context.Context,
	useCase authUseCase.AuthUseCase,
	logger *slog.Logger,
	writer io.Writer,
	urlToken string,
	actorID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	actor, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	status, err := useCase.LockStatus(ctx, urlToken)
	if err != nil {
		return fmt.Errorf("failed to read lock status: %w", err)
	}

	if err := useCase.Unlock(ctx, urlToken, actor, ""); err != nil {
		return fmt.Errorf("failed to unlock transfer: %w", err)
	}

	logger.Info("transfer unlocked", slog.Int64("previous_failures", status.Failures))
	return report(writer, format, map[string]any{
		"unlocked":          true,
		"previous_failures": status.Failures,
		"was_locked":        status.Locked,
	}, "Transfer unlocked (previous failures: %d)", status.Failures)
}

// RunForceDeleteTransfer removes the wrapped key and stored object of a transfer and tombstones
// it. Deleting an already deleted transfer succeeds.
func RunForceDeleteTransfer(
	ctx context.Context,
	broker transferUseCase.DownloadBroker,
	logger *slog.Logger,
	writer io.Writer,
	sessionID string,
	actorID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("invalid transfer id: %w", err)
	}
	actor, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	if err := broker.ForceDelete(ctx, id, actor, ""); err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}

	logger.Info("transfer force deleted", slog.String("transfer_id", id.String()))
	return report(writer, format, map[string]any{"id": id.String(), "deleted": true}, "Transfer %s deleted", id)
}
