package main

import (
	"context"
	"errors"
	"fmt"

	"kbadmin/internal/logging"
	"kbadmin/internal/store"
)

// ensureFallbackAccount seeds a local admin login so the dashboard stays
// usable when the knowledge base server's account system is unreachable.
// Nothing is seeded once any account exists or when no password is set.
func ensureFallbackAccount(ctx context.Context, cfg Config, localStore *store.Store, logger *logging.Logger) error {
	has, err := localStore.HasAccounts(ctx)
	if err != nil {
		return fmt.Errorf("check accounts: %w", err)
	}
	if has {
		return nil
	}

	if cfg.FallbackAdminPassword == "" {
		logger.Warn("no accounts exist and FALLBACK_ADMIN_PASSWORD is unset, logins will fail")
		return nil
	}

	err = localStore.CreateAccount(ctx, cfg.FallbackAdminUser, cfg.FallbackAdminPassword)
	if err != nil && !errors.Is(err, store.ErrAccountExists) {
		return fmt.Errorf("seed fallback account: %w", err)
	}
	logger.Info("seeded fallback admin account " + cfg.FallbackAdminUser)
	return nil
}
