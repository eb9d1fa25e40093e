package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authService "github.com/allisson/sealdrop/internal/auth/service"
	userDomain "github.com/allisson/sealdrop/internal/user/domain"
	customValidation "github.com/allisson/sealdrop/internal/validation"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 256
)

type userUseCase struct {
	userRepo      UserRepository
	secretService authService.SecretService
	totpService   authService.TOTPService
}

func validateCreateUser(input *userDomain.CreateUserInput) error {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Email, validation.Required, customValidation.Email),
		validation.Field(&input.DisplayName, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&input.Password,
			validation.When(input.Password != "", customValidation.Passphrase{
				MinLength: minPasswordLength,
				MaxLength: maxPasswordLength,
			}),
		),
	)
	return customValidation.WrapValidationError(err)
}

// Create validates the input, hashes the password (generating one when empty), enrols the
// account in TOTP and stores it. Only the email hash and the sealed TOTP secret are persisted.
func (u *userUseCase) Create(
	ctx context.Context,
	input *userDomain.CreateUserInput,
) (*userDomain.CreateUserOutput, error) {
	input.Email = userDomain.NormalizeEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	if err := validateCreateUser(input); err != nil {
		return nil, err
	}

	output := &userDomain.CreateUserOutput{}

	var passwordHash string
	var err error
	if input.Password == "" {
		output.PlainPassword, passwordHash, err = u.secretService.GeneratePassword()
		output.PasswordGenerated = true
	} else {
		passwordHash, err = u.secretService.HashPassword(input.Password)
	}
	if err != nil {
		return nil, err
	}

	enrollment, err := u.totpService.Enroll(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	user := &userDomain.User{
		ID:               uuid.Must(uuid.NewV7()),
		EmailHash:        userDomain.HashEmail(input.Email),
		DisplayName:      input.DisplayName,
		PasswordHash:     passwordHash,
		TOTPSecretSealed: enrollment.Sealed,
		TwoFactorType:    userDomain.TwoFactorTOTP,
		IsAdmin:          input.IsAdmin,
		CreatedAt:        time.Now().UTC(),
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	output.User = user
	output.TOTPProvisionURI = enrollment.ProvisioningURI
	output.TOTPPlainSecret = enrollment.Secret
	return output, nil
}

func (u *userUseCase) Get(ctx context.Context, userID uuid.UUID) (*userDomain.User, error) {
	return u.userRepo.Get(ctx, userID)
}

// NewUserUseCase creates a UserUseCase.
func NewUserUseCase(
	userRepo UserRepository,
	secretService authService.SecretService,
	totpService authService.TOTPService,
) UserUseCase {
	return &userUseCase{
		userRepo:      userRepo,
		secretService: secretService,
		totpService:   totpService,
	}
}
