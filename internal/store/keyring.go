package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const serviceName = "sendersweep"

// ErrNoToken is returned when the keyring holds no token for an account.
var ErrNoToken = errors.New("no saved token")

// TokenStore persists OAuth2 tokens per account.
type TokenStore interface {
	SaveToken(account string, token *oauth2.Token) error
	LoadToken(account string) (*oauth2.Token, error)
	DeleteToken(account string) error
}

// KeyringTokenStore persists OAuth2 tokens in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type KeyringTokenStore struct{}

// NewKeyringTokenStore returns a new KeyringTokenStore.
func NewKeyringTokenStore() *KeyringTokenStore {
	return &KeyringTokenStore{}
}

// SaveToken stores the token in the OS keyring under the account name.
func (k *KeyringTokenStore) SaveToken(account string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := keyring.Set(serviceName, account, string(data)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}

// LoadToken retrieves the token for the account. A missing entry yields
// ErrNoToken.
func (k *KeyringTokenStore) LoadToken(account string) (*oauth2.Token, error) {
	data, err := keyring.Get(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("failed to load token for %s: %w", account, ErrNoToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token from keyring: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// DeleteToken removes the account's token. Deleting a missing token is not
// an error.
func (k *KeyringTokenStore) DeleteToken(account string) error {
	if err := keyring.Delete(serviceName, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

var _ TokenStore = (*KeyringTokenStore)(nil)
