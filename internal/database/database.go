package database

import (
	"fmt"
	"os"

	"github.com/fotodepo/backend/internal/config"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Album{},
		&models.Photo{},
	)
}

// seedAdminUser creates the single operator account on first boot; the
// original application does this through its setup wizard.
func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@fotodepo.local"
	}
	if password == "" {
		password = "admin123"
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
	}

	return db.Create(&admin).Error
}
