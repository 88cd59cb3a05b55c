package services

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/sanitize"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

// RegisterInput is the registration payload
type RegisterInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// NormalizeEmail lower-cases and validates an address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", types.Validation("invalid email address")
	}
	return email, nil
}

// RegisterUser creates a password account
func RegisterUser(db *gorm.DB, in RegisterInput) (*models.User, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	firstName := sanitize.Text(in.FirstName)
	lastName := sanitize.Text(in.LastName)
	if firstName == "" || lastName == "" {
		return nil, types.Validation("first_name and last_name are required")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, types.Validation("%v", err)
		}
		return nil, err
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, storeError(err, "user")
	}
	if count > 0 {
		return nil, types.Conflict("email already registered")
	}

	user := models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.Conflict("email already registered")
		}
		return nil, storeError(err, "user")
	}
	return &user, nil
}

// AuthenticateUser checks email and password
func AuthenticateUser(db *gorm.DB, email, password string) (*models.User, error) {
	user, err := GetUserByEmail(db, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.Unauthenticated("%v", auth.ErrInvalidCredentials)
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, types.Unauthenticated("%v", err)
	}
	return user, nil
}

// GetUserByID loads a user
func GetUserByID(db *gorm.DB, id uint64) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, storeError(err, "user")
	}
	return &user, nil
}

// GetUserByEmail loads a user by address, case-insensitively
func GetUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, storeError(err, "user")
	}
	return &user, nil
}

// ListUsers returns users matching search over email and names, ordered by id
func ListUsers(db *gorm.DB, search string, page Page) ([]models.User, error) {
	query := db.Model(&models.User{}).Order("id")
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}

	users := []models.User{}
	if err := query.Scopes(page.scope(defaultLimit)).Find(&users).Error; err != nil {
		return nil, storeError(err, "user")
	}
	return users, nil
}

// UpdateEmail changes the user's address after re-checking the password
func UpdateEmail(db *gorm.DB, user *models.User, newEmail, password string) (*models.User, error) {
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, types.Unauthenticated("incorrect password")
	}
	email, err := NormalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}
	if email == user.Email {
		return user, nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
		return nil, storeError(err, "user")
	}
	if count > 0 {
		return nil, types.Conflict("email already in use")
	}

	if err := db.Model(user).Update("email", email).Error; err != nil {
		return nil, storeError(err, "user")
	}
	user.Email = email
	return user, nil
}

// UpdatePassword replaces the password after checking the current one
func UpdatePassword(db *gorm.DB, user *models.User, currentPassword, newPassword string) error {
	if err := auth.CheckPassword(user.PasswordHash, currentPassword); err != nil {
		return types.Unauthenticated("incorrect current password")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return types.Validation("%v", err)
		}
		return err
	}
	if err := db.Model(user).Update("password_hash", hash).Error; err != nil {
		return storeError(err, "user")
	}
	user.PasswordHash = hash
	return nil
}

// FindOrCreateGoogleUser resolves a Google profile to a user. An existing account with
// the same email is linked to the Google id; otherwise a password-less account is created.
func FindOrCreateGoogleUser(db *gorm.DB, gu *auth.GoogleUser) (*models.User, error) {
	user, err := findOrCreateGoogleUser(db, gu)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent first login inserted the row first
		user, err = findOrCreateGoogleUser(db, gu)
	}
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

func findOrCreateGoogleUser(db *gorm.DB, gu *auth.GoogleUser) (*models.User, error) {
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", gu.ID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		googleID := gu.ID
		err = tx.Where("email = ?", strings.ToLower(gu.Email)).First(&user).Error
		if err == nil {
			if err := tx.Model(&user).Update("google_id", googleID).Error; err != nil {
				return err
			}
			user.GoogleID = &googleID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		firstName, lastName := gu.GivenName, gu.FamilyName
		if firstName == "" {
			firstName, lastName, _ = strings.Cut(gu.Name, " ")
		}
		user = models.User{
			Email:     strings.ToLower(gu.Email),
			FirstName: sanitize.Text(firstName),
			LastName:  sanitize.Text(lastName),
			GoogleID:  &googleID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
