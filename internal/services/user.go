package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 365

// UserService handles accounts, profiles and tokens
type UserService struct {
	users     UserStore
	identity  Identity
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users UserStore, identity Identity, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		identity:  identity,
		jwtSecret: jwtSecret,
	}
}

// Registration is a new account with its access token
type Registration struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token claims", errs.ErrUnauthenticated)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: user_id not found in token", errs.ErrUnauthenticated)
	}

	return userID, nil
}

// Authenticate resolves a token to the principal it was issued for.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	userID, err := s.ValidateJWT(token)
	if err != nil {
		return models.Principal{}, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%w: unknown user", errs.ErrUnauthenticated)
		}
		return models.Principal{}, errs.Remote(err)
	}
	return models.Principal{ID: user.ID, DisplayName: user.Name}, nil
}

// Register creates an account with a unique username
func (s *UserService) Register(ctx context.Context, name string) (*Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("username is required")
	}

	taken, err := s.users.NameTaken(ctx, name, "")
	if err != nil {
		return nil, errs.Remote(err)
	}
	if taken {
		return nil, errs.ErrNameTaken
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Following: []string{},
		Followers: []string{},
		CreatedAt: time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrNameTaken) {
			return nil, errs.ErrNameTaken
		}
		return nil, errs.Remote(fmt.Errorf("failed to create user: %w", err))
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &Registration{User: user, Token: token}, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return user, nil
}

// UpdateProfile changes the principal's username and bio. A new username
// must not belong to anybody else.
func (s *UserService) UpdateProfile(ctx context.Context, name, bio string) (*models.User, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("username is required")
	}

	if name != p.DisplayName {
		taken, err := s.users.NameTaken(ctx, name, p.ID)
		if err != nil {
			return nil, errs.Remote(err)
		}
		if taken {
			return nil, errs.ErrNameTaken
		}
	}

	if err := s.users.UpdateProfile(ctx, p.ID, name, bio); err != nil {
		if errors.Is(err, errs.ErrNameTaken) {
			return nil, errs.ErrNameTaken
		}
		return nil, errs.Remote(fmt.Errorf("failed to update profile: %w", err))
	}
	return s.Get(ctx, p.ID)
}

// UpdatePushToken registers the principal's device. An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, token string) error {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return errs.ErrUnauthenticated
	}
	var pushToken *string
	if token != "" {
		pushToken = &token
	}
	if err := s.users.UpdatePushToken(ctx, p.ID, pushToken); err != nil {
		return errs.Remote(err)
	}
	return nil
}

// List returns everybody but the principal whose name contains query
func (s *UserService) List(ctx context.Context, query string) ([]*models.User, error) {
	p, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	users, err := s.users.List(ctx, strings.TrimSpace(query), p.ID)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return users, nil
}
