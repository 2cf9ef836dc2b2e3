package model

import "context"

// PasswordHasher produces and checks salted password hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// Migrator prepares the database schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
