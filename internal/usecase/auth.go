package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
)

type SignupUseCase struct {
	Repo    entity.UserRepositoryInterface
	Hasher  PasswordHasher
	Enabled bool
	Logger  *zap.Logger
	Clock   Clock
}

func NewSignupUseCase(repo entity.UserRepositoryInterface, hasher PasswordHasher, enabled bool, logger *zap.Logger) *SignupUseCase {
	return &SignupUseCase{Repo: repo, Hasher: hasher, Enabled: enabled, Logger: orNop(logger)}
}

func (uc *SignupUseCase) Execute(ctx context.Context, input CredentialsInput) (*SignupOutput, error) {
	if !uc.Enabled {
		return nil, &DomainError{Code: CodeSignupDisabled, Message: "signup is disabled"}
	}
	if errs := ValidateCredentialsInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	hash, err := uc.Hasher.Hash(input.Password)
	if err != nil {
		return nil, &TechnicalError{Code: "HASH_FAILED", Message: "could not hash password", Err: err}
	}

	user := entity.NewUser(input.Email, hash, uc.Clock.now())
	if err := uc.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrEmailTaken) {
			return nil, &DomainError{Code: CodeEmailTaken, Message: "email already registered", Err: err}
		}
		return nil, storageError(err)
	}

	uc.Logger.Info("user signed up", zap.String("user_id", user.ID))
	return &SignupOutput{Email: user.Email}, nil
}

type LoginUseCase struct {
	Repo   entity.UserRepositoryInterface
	Hasher PasswordHasher
	Tokens TokenIssuer
	Logger *zap.Logger

	// dummyHash is compared on unknown emails so both failures cost a hash.
	dummyOnce sync.Once
	dummyHash string
}

func NewLoginUseCase(repo entity.UserRepositoryInterface, hasher PasswordHasher, tokens TokenIssuer, logger *zap.Logger) *LoginUseCase {
	return &LoginUseCase{Repo: repo, Hasher: hasher, Tokens: tokens, Logger: orNop(logger)}
}

func (uc *LoginUseCase) Execute(ctx context.Context, input CredentialsInput) (*LoginOutput, error) {
	user, err := uc.Repo.FindByEmail(ctx, entity.NormalizeEmail(input.Email))
	if errors.Is(err, entity.ErrUserNotFound) {
		_ = uc.Hasher.Compare(uc.timingHash(), input.Password)
		uc.Logger.Info("login rejected: unknown email")
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, storageError(err)
	}

	if err := uc.Hasher.Compare(user.PasswordHash, input.Password); err != nil {
		uc.Logger.Info("login rejected: bad password", zap.String("user_id", user.ID))
		return nil, errInvalidCredentials
	}

	token, err := uc.Tokens.Issue(user)
	if err != nil {
		return nil, &TechnicalError{Code: "TOKEN_FAILED", Message: "could not issue token", Err: err}
	}
	return &LoginOutput{AccessToken: token}, nil
}

func (uc *LoginUseCase) timingHash() string {
	uc.dummyOnce.Do(func() {
		uc.dummyHash, _ = uc.Hasher.Hash("salespilot-unknown-user")
	})
	return uc.dummyHash
}
