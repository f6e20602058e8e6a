package main

import (
	"context"
	"flag"
	"log"
	"time"

	"stockpilot/internal/model"
	"stockpilot/internal/repository"
	"stockpilot/pkg/config"
	"stockpilot/pkg/database"

	"github.com/google/uuid"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	email := flag.String("email", cfg.AdminEmail, "account to reset")
	password := flag.String("password", cfg.AdminPassword, "new password")
	flag.Parse()

	if len(*password) < 6 {
		log.Fatal("❌ Password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	users := repository.NewUserRepo(db)

	// 3. Find user
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("❌ User %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	var hashed model.User
	if err := hashed.SetPassword(*password); err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 5. Update, and sign out any open session
	if err := users.UpdatePassword(ctx, user.ID, hashed.Password); err != nil {
		log.Fatalf("❌ Failed to update password in DB: %v", err)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		log.Fatalf("❌ Failed to revoke sessions: %v", err)
	}

	log.Printf("✅ Password for %s has been reset", user.Email)
}
