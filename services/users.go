package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cherishclears/library-backend/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
)

// RegisterInput is a new reader account
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// UpdateInput is a profile change. An empty password keeps the current one.
// Role and Status are admin-only.
type UpdateInput struct {
	Username string             `json:"username"`
	Password string             `json:"password"`
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Phone    string             `json:"phone"`
	Role     *models.Role       `json:"role"`
	Status   *models.UserStatus `json:"status"`
}

// UserService manages accounts
type UserService struct {
	db *gorm.DB
	// HashCost is the bcrypt cost for new password hashes
	HashCost int
}

// NewUserService creates a user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, HashCost: bcrypt.DefaultCost}
}

// Register creates an ACTIVE reader account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, validation("password must be at least %d characters", minPasswordLen)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         models.RoleReader,
		Status:       models.UserStatusActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUsernameFree(tx, user.Username, 0); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks a username/password pair against an ACTIVE account
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// GetByUsername returns a user by username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user", username)
	}
	return &user, nil
}

// List pages through every account
func (s *UserService) List(ctx context.Context, page PageRequest) (*Page[models.User], error) {
	page = page.normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	users := []models.User{}
	if err := s.db.WithContext(ctx).
		Order(page.orderClause(userSortColumns, "id")).
		Offset(page.offset()).
		Limit(page.Size).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &Page[models.User]{Items: users, Total: total, Page: page.Page, Size: page.Size}, nil
}

var userSortColumns = map[string]string{
	"id":        "id",
	"username":  "username",
	"createdAt": "created_at",
}

// Update changes a profile. Only admins may change role or status.
func (s *UserService) Update(ctx context.Context, id uint, in UpdateInput, actorIsAdmin bool) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return notFound(err, "user", id)
		}

		if in.Username != "" && in.Username != user.Username {
			if err := validateUsername(in.Username); err != nil {
				return err
			}
			if err := ensureUsernameFree(tx, in.Username, id); err != nil {
				return err
			}
			user.Username = in.Username
		}

		if in.Password != "" {
			if len(in.Password) < minPasswordLen {
				return validation("password must be at least %d characters", minPasswordLen)
			}
			hash, err := s.hash(in.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if in.Role != nil && *in.Role != user.Role {
			if !actorIsAdmin {
				return fmt.Errorf("changing role: %w", ErrForbidden)
			}
			if !in.Role.Valid() {
				return validation("unknown role %q", *in.Role)
			}
			user.Role = *in.Role
		}
		if in.Status != nil && *in.Status != user.Status {
			if !actorIsAdmin {
				return fmt.Errorf("changing status: %w", ErrForbidden)
			}
			if !in.Status.Valid() {
				return validation("unknown status %q", *in.Status)
			}
			user.Status = *in.Status
		}

		user.Name = in.Name
		user.Email = in.Email
		user.Phone = in.Phone

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes an account. Users with active borrows stay.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return notFound(err, "user", id)
		}

		var active int64
		if err := tx.Model(&models.Borrow{}).
			Where("user_id = ? AND status IN ?", id, models.ActiveBorrowStatuses).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to count borrows of user %d: %w", id, err)
		}
		if active > 0 {
			return fmt.Errorf("user %d has %d active borrows: %w", id, active, ErrHasActiveBorrows)
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Borrow{}).Error; err != nil {
			return fmt.Errorf("failed to delete borrow history of user %d: %w", id, err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
		return nil
	})
}

// EnsureAdmin makes sure an active admin account with this username exists.
// An existing account is promoted but keeps its password.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.GetByUsername(ctx, username)
	if err == nil {
		if existing.IsAdmin() && existing.Status == models.UserStatusActive {
			return existing, nil
		}
		existing.Role = models.RoleAdmin
		existing.Status = models.UserStatusActive
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, fmt.Errorf("failed to promote %s: %w", username, err)
		}
		log.Info().Str("username", username).Msg("✅ Existing user promoted to admin")
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, validation("admin password is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	admin := models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         username,
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Info().Str("username", username).Msg("✅ Admin user seeded successfully")
	return &admin, nil
}

func (s *UserService) hash(password string) (string, error) {
	cost := s.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func validateUsername(username string) error {
	if n := len(username); n < minUsernameLen || n > maxUsernameLen {
		return validation("username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	}
	return nil
}

func ensureUsernameFree(tx *gorm.DB, username string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username %s: %w", username, err)
	}
	if count > 0 {
		return fmt.Errorf("username %s: %w", username, ErrUsernameTaken)
	}
	return nil
}
