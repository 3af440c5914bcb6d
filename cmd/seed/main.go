package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/Baaaki/yamdb/internal/config"
	"github.com/Baaaki/yamdb/internal/database"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/service"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	database.Connect(cfg)
	database.Migrate()

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")

	if adminUsername == "" || adminEmail == "" {
		log.Fatal("Missing environment variables: ADMIN_USERNAME, ADMIN_EMAIL")
	}

	admin, created, err := seedAdmin(context.Background(), database.DB, adminUsername, adminEmail)
	if err != nil {
		log.Fatal("Failed to create admin: ", err)
	}
	if !created {
		log.Println("Admin account already exists:", admin.Username)
		log.Println("   Email:", admin.Email)
		return
	}

	log.Println("Admin account created")
	log.Println("   Username:", admin.Username)
	log.Println("   Email:", admin.Email)
	log.Println("   Request a confirmation code through /api/v1/auth/signup to sign in.")
}

// seedAdmin creates the superuser unless an account already holds the
// username or email. New identities go through the same checks as signup.
func seedAdmin(ctx context.Context, db *gorm.DB, username, email string) (*models.Account, bool, error) {
	var existing models.Account
	result := db.WithContext(ctx).Where("username = ? OR email = ?", username, email).Limit(1).Find(&existing)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return &existing, false, nil
	}

	accounts := repository.NewAccountRepository(db)
	if err := service.NewIdentityValidator(accounts).Validate(ctx, username, email, 0); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	admin := &models.Account{
		Username:    username,
		Email:       email,
		Role:        models.RoleAdmin,
		IsSuperuser: true,
		IsStaff:     true,
		ConfirmedAt: &now,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}
