// Package auth provides the identity provider: account registration,
// credential checks and session tokens.
package auth

import (
	"context"

	"github.com/mmynk/housemates/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The service layer depends only on this interface, so the credential
// mechanism can change without touching it.
type Authenticator interface {
	// Register creates a new account. The credential format depends on the
	// implementation.
	Register(ctx context.Context, email, name, credential string) (*models.User, error)

	// Authenticate verifies credentials and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential against the implementation's rules.
	ValidateCredential(credential string) error
}
