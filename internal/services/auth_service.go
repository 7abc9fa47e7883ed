package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/mailer"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("user already registered")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidCredentials   = errors.New("invalid login credentials")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrEmailNotConfirmed    = errors.New("email not confirmed")
	ErrAlreadyConfirmed     = errors.New("email already confirmed")
	ErrIdentityNotFound     = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthEventType names a session state change.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to every registered listener on a session change.
type AuthEvent struct {
	Type     AuthEventType
	Identity *models.Identity
}

// AuthListener reacts to session changes.
type AuthListener func(ctx context.Context, event AuthEvent)

// AuthConfig controls signup behavior.
type AuthConfig struct {
	// BaseURL prefixes confirmation links.
	BaseURL string
	// RequireEmailConfirmation leaves new identities unconfirmed until the
	// emailed link is followed.
	RequireEmailConfirmation bool
}

// AuthService handles identities, password authentication and email
// confirmation.
type AuthService struct {
	identities repository.IdentityRepository
	tokens     *ConfirmationTokens
	mailer     mailer.Mailer
	cfg        AuthConfig
	log        logging.Logger
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]AuthListener
	nextID    int
}

// NewAuthService creates a new AuthService.
func NewAuthService(identities repository.IdentityRepository, tokens *ConfirmationTokens, m mailer.Mailer, cfg AuthConfig, log logging.Logger) *AuthService {
	return &AuthService{
		identities: identities,
		tokens:     tokens,
		mailer:     m,
		cfg:        cfg,
		log:        log.With("component", "auth"),
		now:        time.Now,
		listeners:  make(map[int]AuthListener),
	}
}

// OnAuthStateChange registers a listener and returns a function removing it.
func (s *AuthService) OnAuthStateChange(listener AuthListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *AuthService) emit(ctx context.Context, event AuthEvent) {
	s.mu.RLock()
	listeners := make([]AuthListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, event)
	}
}

// SignupInput represents the required information to create a new identity.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// SignupResult is either confirmation-pending or confirmed, never both.
type SignupResult struct {
	Identity            *models.Identity
	ConfirmationPending bool
}

// Signup creates a new identity. When email confirmation is required a
// confirmation link is mailed and the identity stays unconfirmed.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.identities.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Metadata:     models.IdentityMetadata{FullName: strings.TrimSpace(input.FullName)},
	}
	if !s.cfg.RequireEmailConfirmation {
		now := s.now()
		identity.ConfirmedAt = &now
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	if !s.cfg.RequireEmailConfirmation {
		return &SignupResult{Identity: identity}, nil
	}

	if err := s.sendConfirmation(ctx, identity); err != nil {
		// The identity exists; the user can ask for the link again.
		s.log.Error(ctx, "failed to send confirmation email", "user_id", identity.ID, "error", err)
	}
	return &SignupResult{Identity: identity, ConfirmationPending: true}, nil
}

// ResendConfirmation mails a fresh confirmation link to an unconfirmed
// identity.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("failed to find identity: %w", err)
	}
	if identity.Confirmed() {
		return ErrAlreadyConfirmed
	}

	return s.sendConfirmation(ctx, identity)
}

func (s *AuthService) sendConfirmation(ctx context.Context, identity *models.Identity) error {
	token, err := s.tokens.Issue(identity.ID, constants.ConfirmationTypeSignup)
	if err != nil {
		return err
	}
	link := mailer.ConfirmationLink(s.cfg.BaseURL, token, constants.ConfirmationTypeSignup)
	return s.mailer.Send(ctx, mailer.ConfirmationMessage(identity.Email, link))
}

// ConfirmEmail verifies a confirmation link and marks the identity confirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, tokenHash, typ string) (*models.Identity, error) {
	if tokenHash == "" || typ != constants.ConfirmationTypeSignup {
		return nil, ErrInvalidConfirmationLink
	}

	identityID, err := s.tokens.Verify(tokenHash, typ)
	if err != nil {
		return nil, err
	}

	if err := s.identities.MarkConfirmed(ctx, identityID, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidConfirmationLink
		}
		return nil, fmt.Errorf("failed to confirm identity: %w", err)
	}

	return s.GetIdentity(ctx, identityID)
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and announces the sign-in.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.Identity, error) {
	identity, err := s.identities.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.RequireEmailConfirmation && !identity.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}

	s.emit(ctx, AuthEvent{Type: AuthSignedIn, Identity: identity})
	return identity, nil
}

// Logout announces the end of a session.
func (s *AuthService) Logout(ctx context.Context, identityID string) {
	var identity *models.Identity
	if identityID != "" {
		identity, _ = s.GetIdentity(ctx, identityID)
	}
	s.emit(ctx, AuthEvent{Type: AuthSignedOut, Identity: identity})
}

// Refresh re-validates the session's identity and announces the refresh.
func (s *AuthService) Refresh(ctx context.Context, identityID string) (*models.Identity, error) {
	identity, err := s.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, AuthEvent{Type: AuthTokenRefreshed, Identity: identity})
	return identity, nil
}

// GetIdentity retrieves an identity by ID.
func (s *AuthService) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	identity, err := s.identities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return identity, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
