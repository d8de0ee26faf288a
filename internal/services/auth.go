package services

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/models"
	"github.com/taskforge/backend/internal/utils"
	"github.com/taskforge/backend/pkg/logger"
	"github.com/taskforge/backend/pkg/response"
	"gorm.io/gorm"
)

// AuthService issues, validates and rotates credential pairs. Every user has
// a single refresh slot: issuing a new pair overwrites it, so the previous
// refresh token becomes unusable even before its expiry.
type AuthService struct {
	db     *gorm.DB
	jwtCfg *config.JWTConfig
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:     db,
		jwtCfg: jwtCfg,
		now:    time.Now,
	}
}

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	AccessToken  string `json:"accessToken" binding:"required"`
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UserDTO is the profile shape returned by auth endpoints.
type UserDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	FullName  string    `json:"fullName"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse carries a freshly issued credential pair and the user profile.
type AuthResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiration time.Time `json:"accessTokenExpiration"`
	User                  *UserDTO  `json:"user"`
}

// Register creates a new user with the default Member role and issues the
// first credential pair.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if req.Password != req.ConfirmPassword {
		return nil, response.NewValidation("passwords do not match")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewValidation("a user with this email already exists")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserRole{UserID: user.ID, Role: models.RoleMember}).Error
	}); err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", user.ID).Msg("user registered")

	return s.issuePair(user)
}

// Login authenticates email/password credentials and issues a fresh pair.
// Logging in from a second device overwrites the refresh slot, revoking the
// first device's session.
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewForbidden("this account has been deactivated")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.db.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	return s.issuePair(&user)
}

// Refresh validates an expired access token plus the stored refresh
// credential and rotates the pair. The old refresh token is permanently
// unusable afterwards, even if its expiry has not elapsed.
func (s *AuthService) Refresh(req *RefreshRequest) (*AuthResponse, error) {
	claims, err := utils.ParseExpiredToken(req.AccessToken)
	if err != nil {
		return nil, response.NewUnauthorized("invalid access token")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", claims.UserID()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("user not found or inactive")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewUnauthorized("user not found or inactive")
	}

	if user.RefreshToken == nil || !tokensEqual(*user.RefreshToken, req.RefreshToken) {
		return nil, response.NewUnauthorized("invalid refresh token")
	}

	if user.RefreshTokenExpiresAt == nil || !user.RefreshTokenExpiresAt.After(s.now()) {
		return nil, response.NewUnauthorized("refresh token has expired")
	}

	return s.rotatePair(&user, req.RefreshToken)
}

// Revoke clears the user's refresh slot. Idempotent: revoking an already
// revoked session succeeds.
func (s *AuthService) Revoke(userID string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewBadRequest("user not found")
		}
		return err
	}

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"refresh_token":            nil,
		"refresh_token_expires_at": nil,
	}).Error; err != nil {
		return err
	}

	logger.Info().Str("user_id", userID).Msg("refresh token revoked")
	return nil
}

// CurrentUser returns the profile of the authenticated user.
func (s *AuthService) CurrentUser(userID string) (*UserDTO, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}

	roles, err := s.rolesFor(userID)
	if err != nil {
		return nil, err
	}
	return mapUserDTO(&user, roles), nil
}

// CreateAdminIfNotExists seeds the default admin account on first start.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	if err := s.db.Model(&models.UserRole{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123!")
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:        "admin@taskforge.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Administrator",
		IsActive:     true,
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(admin).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.UserRole{UserID: admin.ID, Role: models.RoleAdmin}).Error; err != nil {
			return err
		}
		logger.Warn().Str("email", admin.Email).Msg("default admin created, change the password")
		return nil
	})
}

// issuePair mints an access token and a new refresh credential and stores the
// refresh slot unconditionally. Used by register and login, where the caller
// proved identity by password.
func (s *AuthService) issuePair(user *models.User) (*AuthResponse, error) {
	access, refresh, accessExp, refreshExp, roles, err := s.mintTokens(user)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"refresh_token":            refresh,
		"refresh_token_expires_at": refreshExp,
	}).Error; err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiration: accessExp,
		User:                  mapUserDTO(user, roles),
	}, nil
}

// rotatePair replaces the refresh slot only if it still holds the credential
// that was just validated. Two refreshes racing on the same token leave
// exactly one winner; the loser sees zero rows updated and fails closed.
func (s *AuthService) rotatePair(user *models.User, oldRefresh string) (*AuthResponse, error) {
	access, refresh, accessExp, refreshExp, roles, err := s.mintTokens(user)
	if err != nil {
		return nil, err
	}

	res := s.db.Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", user.ID, oldRefresh).
		Updates(map[string]interface{}{
			"refresh_token":            refresh,
			"refresh_token_expires_at": refreshExp,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewUnauthorized("invalid refresh token")
	}

	return &AuthResponse{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiration: accessExp,
		User:                  mapUserDTO(user, roles),
	}, nil
}

func (s *AuthService) mintTokens(user *models.User) (access, refresh string, accessExp, refreshExp time.Time, roles []string, err error) {
	roles, err = s.rolesFor(user.ID)
	if err != nil {
		return
	}

	ttl := time.Duration(s.jwtCfg.AccessExpireMinutes) * time.Minute
	access, accessExp, err = utils.GenerateToken(user.ID, user.Email, user.FullName(), roles, ttl)
	if err != nil {
		return
	}

	refresh, err = utils.GenerateRefreshToken()
	if err != nil {
		return
	}
	refreshExp = s.now().UTC().Add(time.Duration(s.jwtCfg.RefreshExpireDays) * 24 * time.Hour)
	return
}

func (s *AuthService) rolesFor(userID string) ([]string, error) {
	var rows []models.UserRole
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, string(r.Role))
	}
	return roles, nil
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func mapUserDTO(user *models.User, roles []string) *UserDTO {
	return &UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
		Roles:     roles,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
