package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed developer password.
const seedPasswordBytes = 16

// seedEmail is the address of the first-boot developer account.
const seedEmail = "developer@geb.local"

// SeedDeveloper creates the initial developer account on first boot if no
// users exist. Account deletion is developer-gated, so an empty install needs
// one privileged account to bootstrap from. The generated password is logged —
// it must be changed immediately. Returns the generated password (empty string
// if seeding was skipped).
func SeedDeveloper(ctx context.Context, userRepo UserRepository, hasher *Hasher, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping developer seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	dev := &User{
		Username:     "developer",
		Email:        seedEmail,
		PasswordHash: hash,
		Role:         RoleDeveloper,
	}

	if err := userRepo.Create(ctx, dev); err != nil {
		return "", fmt.Errorf("creating seed developer: %w", err)
	}

	logger.Warn("seed developer account created",
		"email", seedEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
