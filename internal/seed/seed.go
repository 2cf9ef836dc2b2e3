// Package seed loads the example accounts into an empty user store.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
)

// Account is an example user created on first start.
type Account struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      string
}

// DefaultAccounts is the fixed example set.
var DefaultAccounts = []Account{
	{Email: "juan.perez@empresa.es", FirstName: "Juan", LastName: "Pérez", Password: "Password123!", Role: "Premium"},
	{Email: "marie.dubois@societe.fr", FirstName: "Marie", LastName: "Dubois", Password: "Password123!", Role: "Customer"},
	{Email: "john.doe@company.com", FirstName: "John", LastName: "Doe", Password: "Password123!", Role: "Premium"},
	{Email: "admin@tienda.mx", FirstName: "Admin", LastName: "System", Password: "Admin123!", Role: "Admin"},
}

type Seeder struct {
	migrator model.Migrator
	store    model.UserStore
	hasher   model.PasswordHasher
	accounts []Account
	logger   *logger.Logger
	now      func() time.Time
}

func NewSeeder(
	migrator model.Migrator,
	store model.UserStore,
	hasher model.PasswordHasher,
	accounts []Account,
	logger *logger.Logger,
) *Seeder {
	return &Seeder{
		migrator: migrator,
		store:    store,
		hasher:   hasher,
		accounts: accounts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run migrates the schema and inserts the accounts in one batch when the
// store holds no users. It is safe to call on every start.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Seeder: failed to initialize database", "error", err)
		return err
	}
	return nil
}

func (s *Seeder) run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Seeder: applying migrations")
	if err := s.migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	exists, err := s.store.AnyExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		s.logger.InfoContext(ctx, "Seeder: users already present, skipping")
		return nil
	}

	createdAt := s.now()
	users := make([]model.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		hash, err := s.hasher.Hash(a.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", a.Email, err)
		}

		users = append(users, model.User{
			Email:        a.Email,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			PasswordHash: hash,
			Role:         a.Role,
			CreatedAt:    createdAt,
			IsActive:     true,
		})
	}

	if err := s.store.InsertBatch(ctx, users); err != nil {
		return fmt.Errorf("failed to insert example users: %w", err)
	}

	s.logger.InfoContext(ctx, "Seeder: database initialized", "count", len(users))

	return nil
}
