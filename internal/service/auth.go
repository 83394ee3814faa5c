package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/playlobby/tictactoe-server/internal/apperror"
	"github.com/playlobby/tictactoe-server/internal/entity"
	"github.com/playlobby/tictactoe-server/internal/repository"
	"github.com/playlobby/tictactoe-server/internal/storage"
)

type userStore interface {
	Load(ctx context.Context) ([]storage.UserRecord, error)
	Append(ctx context.Context, record storage.UserRecord) error
}

// AuthService handles registration, login and logout against the
// account store, hashing credentials with bcrypt and keeping the
// backing user list in step with the in-memory registry.
type AuthService struct {
	logger   *slog.Logger
	accounts *repository.AccountStore
	users    userStore
}

func NewAuthService(logger *slog.Logger, accounts *repository.AccountStore, users userStore) *AuthService {
	return &AuthService{
		logger:   logger.With("component", "auth"),
		accounts: accounts,
		users:    users,
	}
}

// Seed loads the persisted user list into the account store. Records
// carry already-hashed credentials, so they are added verbatim.
func (that *AuthService) Seed(ctx context.Context) error {
	records, err := that.users.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load user database: %w", err)
	}

	for _, record := range records {
		if err = that.accounts.Register(record.Username, record.Password, nil); err != nil {
			if errors.Is(err, apperror.ErrAccountExists) {
				that.logger.Warn("duplicate user in database, keeping first", "user", record.Username)
				continue
			}
			return fmt.Errorf("failed to seed account %q: %w", record.Username, err)
		}
	}

	that.logger.Info("user database loaded", "accounts", len(records))

	return nil
}

// Register creates the account and appends it to the user list. The
// append runs inside the store's critical section, so two sessions
// racing on the same name cannot both register it; if persistence
// fails the in-memory store stays unchanged.
func (that *AuthService) Register(ctx context.Context, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = that.accounts.Register(name, string(hash), func(account *entity.Account) error {
		return that.users.Append(ctx, storage.UserRecord{
			Username: account.Name,
			Password: account.PasswordHash,
		})
	})
	if err != nil {
		return err
	}

	that.logger.Info("account registered", "user", name)

	return nil
}

// Login verifies the credential and binds the account, rejecting a
// second login while the first is live.
func (that *AuthService) Login(_ context.Context, name, password string) (*entity.Account, error) {
	account, err := that.accounts.TryLogin(name, password, func(hash, password string) error {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	})
	if err != nil {
		return nil, err
	}

	that.logger.Info("account logged in", "user", name)

	return account, nil
}

// Logout frees the account for re-login.
func (that *AuthService) Logout(account *entity.Account) {
	that.accounts.Logout(account)
	that.logger.Info("account logged out", "user", account.Name)
}
