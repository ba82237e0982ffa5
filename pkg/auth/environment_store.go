package auth

import (
	"os"
	"time"
)

// EnvironmentAccountName is the name given to credentials read from the environment
const EnvironmentAccountName = "env"

// EnvironmentStore reads credentials from BEARER_TOKEN, CONSUMER_KEY and
// the TWITTER_ACCOUNT_* variables. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from CONSUMER_KEY, CONSUMER_SECRET,
// TWITTER_ACCOUNT_TOKEN, TWITTER_ACCOUNT_SECRET, BEARER_TOKEN and TWITTER_USER
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	if name != "" && name != EnvironmentAccountName {
		return nil, ErrCredentialsNotFound
	}

	account := &Account{
		Name:           EnvironmentAccountName,
		Handle:         os.Getenv("TWITTER_USER"),
		ConsumerKey:    os.Getenv("CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("CONSUMER_SECRET"),
		AccessToken:    os.Getenv("TWITTER_ACCOUNT_TOKEN"),
		AccessSecret:   os.Getenv("TWITTER_ACCOUNT_SECRET"),
		BearerToken:    os.Getenv("BEARER_TOKEN"),
		LastModified:   time.Now(),
	}
	if !account.HasUserCredentials() && !account.HasAppCredentials() {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
