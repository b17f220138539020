package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/disputeops/internal/auth/domain"
	"github.com/smallbiznis/disputeops/internal/auth/password"
	"github.com/smallbiznis/disputeops/internal/config"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
	"github.com/smallbiznis/disputeops/internal/dispute/repository"
	"gorm.io/gorm"
)

const defaultAdminUsername = "admin"

// EnsureAdmin creates the bootstrap admin account when a password is
// configured and no user holds the same username or email. It reports
// whether a user was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, genID *snowflake.Node, cfg config.BootstrapConfig) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	if cfg.AdminPassword == "" {
		return false, nil
	}
	if genID == nil {
		return false, errors.New("seed id generator is required")
	}

	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		username = defaultAdminUsername
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		email = username + "@localhost"
	}

	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing authdomain.User
		err := tx.Where("username = ? OR email = ?", username, email).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user := authdomain.User{
			ID:           genID.Generate(),
			Username:     username,
			Email:        email,
			PasswordHash: &hash,
			Role:         authdomain.RoleAdmin,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// SampleData loads the demonstration fixture into an empty store. A store
// that already holds received chargebacks is left untouched.
func SampleData(ctx context.Context, db *gorm.DB, genID *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if genID == nil {
		return 0, errors.New("seed id generator is required")
	}

	repo := repository.Provide()
	existing, err := repo.Count(ctx, db, disputedomain.CategoryReceivedChargeback, disputedomain.Filter{})
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	inserted := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, category := range disputedomain.Categories {
			records := sampleRecords(category)
			for _, record := range records {
				record.ID = genID.Generate()
				record.CreatedAt = now
			}
			if err := repo.Insert(ctx, tx, category, records); err != nil {
				return err
			}
			inserted += len(records)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
