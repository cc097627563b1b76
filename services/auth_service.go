//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type RegisterCommand struct {
	Username string
	Email    string
	FullName string
	Password string
}

type IAuthService interface {
	Register(ctx context.Context, cmd RegisterCommand) (Token, error)
	Login(username, password string) (Token, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

// RoomJoiner is the slice of the room directory registration needs to
// put new accounts into the default room.
type RoomJoiner interface {
	Get(roomID string) (domain.Room, error)
	AddMember(roomID, userID string, role domain.Role) error
}

type AuthService struct {
	log           *slog.Logger
	users         repositories.IUserRepository
	tokens        *auth.TokenVerifier
	notifications INotificationService
	rooms         RoomJoiner
	defaultRoom   string
}

func NewAuthService(
	log *slog.Logger,
	users repositories.IUserRepository,
	tokens *auth.TokenVerifier,
	notifications INotificationService,
) *AuthService {
	return &AuthService{log: log, users: users, tokens: tokens, notifications: notifications}
}

// WithDefaultRoom makes every new account join roomID on registration.
func (s *AuthService) WithDefaultRoom(rooms RoomJoiner, roomID string) *AuthService {
	s.rooms = rooms
	s.defaultRoom = roomID
	return s
}

func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (Token, error) {
	valReq := auth.RegisterRequest{
		Username: cmd.Username,
		Email:    cmd.Email,
		FullName: cmd.FullName,
		Password: cmd.Password,
	}

	// 1. Validate business rules (username, email format, password complexity)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		FullName:     cmd.FullName,
		PasswordHash: hashedPassword,
		CreatedAt:    timeNow(),
	}

	// 3. Persist the user with the generated hash
	if err := s.users.Create(user); err != nil {
		return "", err // Will propagate ErrAlreadyExists if the username is taken
	}

	// 4. Greet the new account; registration never fails over a notification
	if err := s.notifications.Welcome(ctx, user.ID, user.Username); err != nil {
		s.log.Warn("Failed to send welcome notification", "user_id", user.ID, "err", err)
	}
	s.joinDefaultRoom(ctx, user.ID)

	// 5. Generate the initial session token
	token, err := s.tokens.Generate(domain.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		ProfileImage: user.ProfileImage,
	})
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	return Token(token), nil
}

// joinDefaultRoom is best effort: a failed join must not undo a
// successful registration.
func (s *AuthService) joinDefaultRoom(ctx context.Context, userID string) {
	if s.rooms == nil || s.defaultRoom == "" {
		return
	}
	room, err := s.rooms.Get(s.defaultRoom)
	if err != nil {
		s.log.Warn("Default room not found", "room_id", s.defaultRoom, "err", err)
		return
	}
	if err := s.rooms.AddMember(room.ID, userID, domain.RoleMember); err != nil {
		s.log.Warn("Failed to join default room", "room_id", room.ID, "user_id", userID, "err", err)
		return
	}
	if err := s.notifications.AddedToRoom(ctx, userID, room); err != nil {
		s.log.Warn("Failed to notify room join", "room_id", room.ID, "user_id", userID, "err", err)
	}
}

func (s *AuthService) Login(username, password string) (Token, error) {
	// 1. Retrieve user by username from storage
	user, err := s.users.GetByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrBadCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrBadCredentials
	}

	// 3. Issue the JWT token
	token, err := s.tokens.Generate(domain.Identity{
		UserID:       user.ID,
		Username:     user.Username,
		ProfileImage: user.ProfileImage,
	})
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	return Token(token), nil
}
