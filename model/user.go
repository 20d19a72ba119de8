package model

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Roles known to the application.
const (
	RoleManager = "manager"
	RoleCommon  = "common"
)

// Roles lists the valid values of User.Role.
var Roles = []string{RoleManager, RoleCommon}

// PasswordCost is the bcrypt cost for new and upgraded credentials.
const PasswordCost = 10

// MinPasswordLength applies to self registration.
const MinPasswordLength = 6

// NormalizeEmail lowercases and trims the email string
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a staff account (manager or common user).
type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	FirstName string `gorm:"not null"`
	LastName  string `gorm:"not null"`
	Email     string `gorm:"uniqueIndex;not null"` // always stored lowercase
	Password  string `gorm:"not null"`             // bcrypt hash, legacy rows may hold plaintext
	Role      string `gorm:"not null;default:common"`
}

// Normalize email before saving
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ---- Credentials ----

// isBcryptHash recognizes the "$2a$", "$2b$" and "$2y$" prefixes.
func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// VerifyCredential compares a submitted password with the stored credential.
// Hashed credentials are checked with bcrypt, anything else is treated as a
// legacy plaintext credential. needsUpgrade is true when a plaintext
// credential matched and must be replaced by a hash.
func VerifyCredential(stored, submitted string) (match, needsUpgrade bool) {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil, false
	}
	match = stored != "" && subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
	return match, match
}

// HashPassword returns a bcrypt hash with PasswordCost.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// AuthenticateUser checks email and password. A matching legacy plaintext
// credential is replaced by a bcrypt hash before the user is returned.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Store) AuthenticateUser(email, password string) (*User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	match, upgrade := VerifyCredential(user.Password, password)
	if !match {
		return nil, ErrInvalidCredentials
	}
	if upgrade {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		if err := s.db.Model(&User{}).Where("id = ?", user.ID).Update("password", hash).Error; err != nil {
			return nil, err
		}
		user.Password = hash
	}
	return user, nil
}

// ---- Lookup / CRUD ----

var userSearch = SearchSpec{
	Columns:         []string{"first_name", "last_name", "email"},
	FirstNameColumn: "first_name",
	LastNameColumn:  "last_name",
}

// ListUsers returns one page of users matching q.
func (s *Store) ListUsers(q SearchQuery) (PagedResult[User], error) {
	return paginate[User](s, BuildFilter(q.Raw, userSearch), q, listOptions{
		Order: "last_name ASC, first_name ASC, id ASC",
	})
}

func (s *Store) GetUserByID(id uint) (*User, error) {
	var user User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	var user User
	if err := s.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// EmailTaken reports whether another user (not exceptID) uses email.
func (s *Store) EmailTaken(email string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.Model(&User{}).
		Where("email = ? AND id <> ?", NormalizeEmail(email), exceptID).
		Count(&n).Error
	return n > 0, err
}

// CreateUser stores u. u.Password must already be hashed.
func (s *Store) CreateUser(u *User) error {
	if !ValidRole(u.Role) {
		return invalid("role", "Please choose a valid role.")
	}
	taken, err := s.EmailTaken(u.Email, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return s.db.Create(u).Error
}

// UpdateUser writes name, email and role of u. The password column is only
// written when newPassword is not empty.
func (s *Store) UpdateUser(u *User, newPassword string) error {
	if !ValidRole(u.Role) {
		return invalid("role", "Please choose a valid role.")
	}
	taken, err := s.EmailTaken(u.Email, u.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	updates := map[string]any{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      NormalizeEmail(u.Email),
		"role":       u.Role,
	}
	if newPassword != "" {
		hash, err := HashPassword(newPassword)
		if err != nil {
			return err
		}
		updates["password"] = hash
		u.Password = hash
	}
	res := s.db.Model(&User{}).Where("id = ?", u.ID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user with id.
func (s *Store) DeleteUser(id uint) error {
	return deleteByID[User](s, id)
}

// deleteByID removes one row by primary key and reports ErrNotFound when
// nothing was deleted.
func deleteByID[T any](s *Store, id uint) error {
	res := s.db.Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
