package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store"
	utils "meetdesk-backend/shared/utils/auth"
)

// SeedAdmin creates the admin account from config unless the email is already taken
func SeedAdmin(ctx context.Context, users store.UserStore, cfg *config.Config) (bool, error) {
	email := utils.NormalizeEmail(cfg.AdminEmail)
	if err := utils.ValidateEmail(email); err != nil {
		return false, fmt.Errorf("admin email: %w", err)
	}
	if len(cfg.AdminPassword) < 6 {
		return false, errors.New("admin password must be at least 6 characters")
	}

	if _, err := users.GetUserByEmail(ctx, email); err == nil {
		log.Println("Admin user already exists")
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hashedPassword, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	admin := &models.User{
		FirstName:   cfg.AdminFirstName,
		LastName:    cfg.AdminLastName,
		Email:       email,
		Password:    hashedPassword,
		Role:        models.RoleAdmin,
		Department:  models.DepartmentManagement,
		Status:      models.UserStatusActive,
		Preferences: models.DefaultUserPreferences(),
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return false, err
	}

	log.Printf("✅ Admin user created: %s", email)
	return true, nil
}
