package database

import (
	"context"
	"testing"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/database/models"
	"meetdesk-backend/shared/store/storetest"
	utils "meetdesk-backend/shared/utils/auth"
)

func TestSeedAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewMemoryStore()
	cfg := &config.Config{
		AdminEmail:     " Admin@Example.com ",
		AdminPassword:  "secret123",
		AdminFirstName: "System",
		AdminLastName:  "Admin",
	}

	created, err := SeedAdmin(ctx, s, cfg)
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got created=%v err=%v", created, err)
	}

	admin, err := s.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("expected admin to be stored: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}
	if !utils.CheckPasswordHash("secret123", admin.Password) {
		t.Fatalf("expected stored password to be hashed admin password")
	}

	created, err = SeedAdmin(ctx, s, cfg)
	if err != nil || created {
		t.Fatalf("expected second seed to be a no-op, got created=%v err=%v", created, err)
	}
}

func TestSeedAdminRejectsShortPassword(t *testing.T) {
	cfg := &config.Config{AdminEmail: "admin@example.com", AdminPassword: "123"}
	if _, err := SeedAdmin(context.Background(), storetest.NewMemoryStore(), cfg); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
}
