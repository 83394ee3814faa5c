package repository

import (
	"sync"

	"github.com/playlobby/tictactoe-server/internal/apperror"
	"github.com/playlobby/tictactoe-server/internal/entity"
)

// AccountStore is the in-memory account registry. Accounts live for the
// process lifetime and are never deleted. Every check-then-act sequence
// runs under one lock, so concurrent registrations and logins cannot
// race each other.
type AccountStore struct {
	mu       sync.Mutex
	accounts []*entity.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

// Register atomically checks name uniqueness and appends the account.
// When persist is non-nil it runs inside the same critical section, so
// the backing user list cannot double-register a name either; a persist
// failure leaves the store unchanged.
func (that *AccountStore) Register(name, passwordHash string, persist func(*entity.Account) error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.findLocked(name) != nil {
		return apperror.ErrAccountExists
	}

	account := &entity.Account{Name: name, PasswordHash: passwordHash}

	if persist != nil {
		if err := persist(account); err != nil {
			return err
		}
	}

	that.accounts = append(that.accounts, account)

	return nil
}

// Exists reports whether an account with the given name is registered.
func (that *AccountStore) Exists(name string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.findLocked(name) != nil
}

// TryLogin scans for the account and, when the credential verifies and
// the account is free, marks it logged in — all under the lock, so two
// concurrent logins for one account can never both succeed. A name
// match with a failing credential is always reported as a wrong
// password, never as not found.
func (that *AccountStore) TryLogin(name, password string, verify func(hash, password string) error) (*entity.Account, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	account := that.findLocked(name)
	if account == nil {
		return nil, apperror.ErrAccountNotFound
	}

	if err := verify(account.PasswordHash, password); err != nil {
		return nil, apperror.ErrWrongPassword
	}

	if account.LoggedIn {
		return nil, apperror.ErrAlreadyLoggedIn
	}

	account.LoggedIn = true

	return account, nil
}

// Logout frees the account for a later login.
func (that *AccountStore) Logout(account *entity.Account) {
	that.mu.Lock()
	defer that.mu.Unlock()

	account.LoggedIn = false
}

func (that *AccountStore) findLocked(name string) *entity.Account {
	for _, account := range that.accounts {
		if account.Name == name {
			return account
		}
	}
	return nil
}
