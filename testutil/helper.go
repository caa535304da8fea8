// Package testutil holds arrange helpers shared by the package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/Cherishclears/library-backend/database"
	"github.com/Cherishclears/library-backend/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GivenDB opens a private in-memory SQLite database with the schema migrated
func GivenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err, "error in arranging test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared in-memory database alive and avoids table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db), "error in migrating test database")
	return db
}

// GivenUser inserts an active user with password "password"
func GivenUser(t testing.TB, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Name:         username,
		Email:        username + "@library.test",
		Role:         role,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, db.Create(&user).Error, "error in arranging test user")
	return user
}

// GivenBook inserts a book with all copies on the shelf
func GivenBook(t testing.TB, db *gorm.DB, isbn string, copies int) models.Book {
	t.Helper()

	book := models.Book{
		ISBN:            isbn,
		Title:           "Title " + isbn,
		Author:          "Author " + isbn,
		Category:        "Fiction",
		TotalCopies:     copies,
		AvailableCopies: copies,
		Status:          models.StatusFor(copies),
	}
	require.NoError(t, db.Create(&book).Error, "error in arranging test book")
	return book
}

// ReloadBook reads the current state of a book
func ReloadBook(t testing.TB, db *gorm.DB, id uint) models.Book {
	t.Helper()

	var book models.Book
	require.NoError(t, db.First(&book, id).Error)
	return book
}
