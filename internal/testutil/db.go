// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

// InitTestDB opens a private in-memory database with the full schema.
func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return gdb
}

func CreateCategory(t *testing.T, gdb *gorm.DB, name, slug string) models.Category {
	t.Helper()
	c := models.Category{Name: name, Slug: slug}
	if err := gdb.Create(&c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func CreateProduct(t *testing.T, gdb *gorm.DB, categoryID uint, name, slug, price string, available bool) models.Product {
	t.Helper()
	p := models.Product{
		CategoryID:  categoryID,
		Name:        name,
		Slug:        slug,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Stock:       10,
		Available:   true,
	}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if !available {
		// false is the zero value, so gorm would apply the column default on insert.
		if err := gdb.Model(&p).Update("available", false).Error; err != nil {
			t.Fatalf("mark product unavailable: %v", err)
		}
		p.Available = false
	}
	return p
}

func CreateUser(t *testing.T, gdb *gorm.DB, username, role string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
