package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	ListWithCredential(ctx context.Context) ([]User, error)
	SetCredential(ctx context.Context, id uuid.UUID, encrypted string) error
}

// CredentialCipher decrypts the portal credential stored on a user.
// Encryption and identity lifecycle belong to the auth collaborator.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

// User is a registered user with a portal credential on file.
// EncryptedCredential is empty when no portal password is configured.
type User struct {
	ID                  uuid.UUID
	Email               string
	StudentID           string
	EncryptedCredential string
	NotifyChannel       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCredential reports whether a portal password is on file.
func (u User) HasCredential() bool {
	return u.EncryptedCredential != ""
}
