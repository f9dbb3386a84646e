// seed-admin creates the administrator account, or resets its password when it already exists.
// System roles and the default dictionaries are seeded first.
//
// Usage (from backend directory):
//
//	ADMIN_EMAIL=admin@example.com ADMIN_PASSWORD=... go run ./cmd/seed-admin
//
// DB_DRIVER/DB_PATH (or DB_HOST/DB_USER/... for mysql) select the database as for the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
)

func main() {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := config.StringFromEnv("ADMIN_NAME", "Administrator")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_EMAIL and ADMIN_PASSWORD are required")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !config.BoolFromEnv("SKIP_MIGRATIONS", false) {
		if err := models.Migrate(config.GetDB()); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}
	if err := models.SeedDictionaries(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed dictionaries: %v\n", err)
		os.Exit(1)
	}

	user, created, err := models.SeedAdmin(ctx, email, name, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("created admin user %s (id=%d)\n", user.Email, user.ID)
		return
	}
	fmt.Printf("updated admin user %s (id=%d)\n", user.Email, user.ID)
}
