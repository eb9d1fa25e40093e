package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	userUseCase "github.com/allisson/sealdrop/internal/user/usecase"
)

// RunCreateUser registers an account and prints its one-time credentials. When password is
// empty one is generated. The TOTP enrolment URI and secret are printed exactly once.
func RunCreateUser(
	ctx context.Context,
	useCase userUseCase.UserUseCase,
	logger *slog.Logger,
	writer io.Writer,
	email string,
	displayName string,
	password string,
	isAdmin bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	logger.Info("creating new user", slog.Bool("is_admin", isAdmin))

	output, err := useCase.Create(ctx, &userDomain.CreateUserInput{
		Email:       email,
		DisplayName: displayName,
		Password:    password,
		IsAdmin:     isAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user created successfully",
		slog.String("user_id", output.User.ID.String()),
		slog.Bool("is_admin", output.User.IsAdmin),
	)

	if format == formatJSON {
		return outputUserJSON(output, writer)
	}
	outputUserText(output, writer)
	return nil
}

func outputUserText(output *userDomain.CreateUserOutput, writer io.Writer) {
	_, _ = fmt.Fprintln(writer, "User created successfully!")
	_, _ = fmt.Fprintf(writer, "User ID: %s\n", output.User.ID)
	_, _ = fmt.Fprintf(writer, "Display name: %s\n", output.User.DisplayName)
	if output.PasswordGenerated {
		_, _ = fmt.Fprintf(writer, "Password: %s\n", output.PlainPassword)
	}
	_, _ = fmt.Fprintf(writer, "TOTP secret: %s\n", output.TOTPPlainSecret)
	_, _ = fmt.Fprintf(writer, "TOTP URI: %s\n", output.TOTPProvisionURI)
	_, _ = fmt.Fprintln(writer, "\nWARNING: Save these credentials securely. They will not be shown again.")
}

func outputUserJSON(output *userDomain.CreateUserOutput, writer io.Writer) error {
	result := map[string]any{
		"id":           output.User.ID.String(),
		"display_name": output.User.DisplayName,
		"is_admin":     output.User.IsAdmin,
		"totp_secret":  output.TOTPPlainSecret,
		"totp_uri":     output.TOTPProvisionURI,
	}
	if output.PasswordGenerated {
		result["password"] = output.PlainPassword
	}
	return report(writer, formatJSON, result, "")
}
