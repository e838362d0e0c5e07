package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressstart/platform/internal/auth"
	"github.com/pressstart/platform/internal/domain"
	"github.com/pressstart/platform/internal/repository"
)

// AuthService handles registration and login for the user realm.
type AuthService struct {
	pool   *pgxpool.Pool
	users  repository.UserRepository
	outbox repository.OutboxRepository
	jwt    *auth.JWTManager
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(pool *pgxpool.Pool, users repository.UserRepository, outbox repository.OutboxRepository, jwt *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{pool: pool, users: users, outbox: outbox, jwt: jwt, logger: logger}
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	XP            int    `json:"xp"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

func profileOf(u *domain.User) UserProfile {
	return UserProfile{
		ID:            u.ID.String(),
		Email:         u.Email,
		Username:      u.Username,
		XP:            u.XP,
		Level:         u.Level,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
	}
}

// AuthResult carries a signed token plus the authenticated user's profile.
type AuthResult struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// Register creates a new user account. New users start at level 1 with no
// XP; all later XP flows through the ledger.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(username) < 3 || len(username) > 32 {
		return nil, domain.ErrValidation("username must be 3-32 characters")
	}
	if len(password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}

	existing, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("check email", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		XP:           0,
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, domain.ErrInternal("create user", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewUserCreatedEvent(user.ID, user.Email)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	token, err := s.jwt.GenerateToken(auth.RealmUser, user.ID, user.Email)
	if err != nil {
		return nil, domain.ErrInternal("sign token", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &AuthResult{Token: token, User: profileOf(user)}, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("load user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	token, err := s.jwt.GenerateToken(auth.RealmUser, user.ID, user.Email)
	if err != nil {
		return nil, domain.ErrInternal("sign token", err)
	}

	return &AuthResult{Token: token, User: profileOf(user)}, nil
}

// Profile returns the current user's profile.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("load user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	p := profileOf(user)
	return &p, nil
}
