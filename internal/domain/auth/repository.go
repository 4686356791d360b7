package auth

// Repository defines the interface for account persistence
type Repository interface {
	// GetAccount retrieves an account by ID
	GetAccount(id string) (*Account, error)

	// GetAccountByEmail retrieves an account by normalized email
	GetAccountByEmail(email string) (*Account, error)

	// GetAccountByMobile retrieves an account by mobile number
	GetAccountByMobile(mobile string) (*Account, error)

	// CreateAccount creates a new account; email and mobile must be unused
	CreateAccount(account *Account) error

	// UpdateAccount updates an existing account
	UpdateAccount(account *Account) error

	// ListAccounts retrieves all accounts
	ListAccounts() ([]*Account, error)

	// CreateSession records an issued refresh token
	CreateSession(session *RefreshSession) error

	// GetSession retrieves a refresh session by token ID
	GetSession(id string) (*RefreshSession, error)

	// DeleteAccountSessions revokes every refresh session of an account
	DeleteAccountSessions(accountID string) error
}
