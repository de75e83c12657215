package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
)

// AuthService handles authentication operations over the users collection
type AuthService struct {
	store       document.Store
	jwtService  *auth.JWTService
	revocations auth.RevocationList
	events      shared.EventBus
	logger      *zap.Logger

	registerMu sync.Mutex
}

// NewAuthService creates a new authentication service
func NewAuthService(
	store document.Store,
	jwtService *auth.JWTService,
	revocations auth.RevocationList,
	events shared.EventBus,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		store:       store,
		jwtService:  jwtService,
		revocations: revocations,
		events:      events,
		logger:      logger,
	}
}

// RegisterHandlers revokes every token of a user whose document is deleted
func (s *AuthService) RegisterHandlers(bus shared.EventSubscriber) {
	bus.Subscribe(&shared.EventHandlerFunc{
		Types: []string{document.EventTypeChanged},
		Fn: func(ctx context.Context, event shared.DomainEvent) error {
			changed, ok := event.(*document.ChangedEvent)
			if !ok || changed.Collection != document.CollectionUsers || changed.Operation != document.OpDelete {
				return nil
			}
			s.logger.Info("Revoking tokens of deleted user", zap.String("user_id", changed.AggregateID()))
			return s.revocations.RevokeUser(ctx, changed.AggregateID(), s.jwtService.GetRefreshTokenExpiration())
		},
	})
}

// OnAuthStateChanged calls fn on every sign-in and sign-out. The returned
// function removes the listener.
func (s *AuthService) OnAuthStateChanged(fn func(ctx context.Context, state identity.AuthState)) func() {
	handler := &shared.EventHandlerFunc{
		Types: []string{identity.EventTypeSignedIn, identity.EventTypeSignedOut},
		Fn: func(ctx context.Context, event shared.DomainEvent) error {
			if e, ok := event.(*identity.AuthStateChangedEvent); ok {
				fn(ctx, e.State())
			}
			return nil
		},
	}
	s.events.Subscribe(handler)
	return func() { s.events.Unsubscribe(handler) }
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)
	s.logger.Info("Login attempt", zap.String("email", email))

	acc, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil || !acc.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid login attempt", zap.String("email", email))
		return nil, identity.ErrInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(tokenInput(acc))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.publish(ctx, identity.NewSignedInEvent(acc.ID))
	s.logger.Info("User logged in successfully", zap.String("user_id", acc.ID))

	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  toUserInfo(acc),
	}, nil
}

// Refresh exchanges a refresh token for a new pair carrying the account's current role
func (s *AuthService) Refresh(ctx context.Context, input RefreshTokenInput) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, refreshError(err)
	}

	if revoked, err := s.revocations.IsRevoked(ctx, claims.ID); err != nil {
		s.logger.Error("Failed to check token revocation", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to validate refresh token")
	} else if revoked {
		return nil, shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	}
	if invalidated, err := s.revocations.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime()); err == nil && invalidated {
		return nil, shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	}

	acc, err := s.account(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "User no longer exists")
		}
		return nil, err
	}

	pair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, tokenInput(acc))
	if err != nil {
		s.logger.Warn("Token refresh rejected", zap.String("user_id", acc.ID), zap.Error(err))
		return nil, refreshError(err)
	}
	// the old refresh token is single use
	if err := s.revocations.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Warn("Failed to revoke used refresh token", zap.Error(err))
	}

	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  toUserInfo(acc),
	}, nil
}

// Logout revokes the access token (and the refresh token when supplied)
// and announces the sign-out
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.TokenJTI != "" && input.TokenTTL > 0 {
		if err := s.revocations.Revoke(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to revoke access token", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to sign out")
		}
	}
	if input.RefreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken); err == nil && claims.UserID == input.UserID {
			if err := s.revocations.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
				s.logger.Warn("Failed to revoke refresh token", zap.Error(err))
			}
		}
	}

	s.publish(ctx, identity.NewSignedOutEvent(input.UserID))
	s.logger.Info("User logged out", zap.String("user_id", input.UserID))
	return nil
}

// Me returns the signed-in user's profile
func (s *AuthService) Me(ctx context.Context, userID string) (*UserInfo, error) {
	acc, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(acc)
	return &info, nil
}

// Register creates a user with a hashed password. Emails are unique.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	acc, err := identity.NewAccount(input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		return nil, err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	existing, err := s.findByEmail(ctx, acc.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, identity.ErrEmailTaken
	}

	doc, err := s.store.Create(ctx, document.CollectionUsers, "", acc.Fields())
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok && de.Code == "ALREADY_EXISTS" {
			return nil, identity.ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to create user", err)
	}
	acc.ID = doc.ID
	s.publish(ctx, document.NewChangedEvent(document.CollectionUsers, doc.ID, document.OpCreate))

	s.logger.Info("User registered", zap.String("user_id", acc.ID), zap.String("role", acc.Role))
	info := toUserInfo(acc)
	return &info, nil
}

// SetRole changes an account's role. Every token issued before the change is
// revoked, so the new role applies from the next sign-in.
func (s *AuthService) SetRole(ctx context.Context, input SetRoleInput) (*UserInfo, error) {
	role, err := identity.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}
	if input.UserID == input.ActorID && role != identity.RoleAdmin {
		return nil, shared.NewDomainError("INVALID_INPUT", "Administrators cannot demote themselves")
	}
	acc, err := s.account(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if acc.Role == role {
		info := toUserInfo(acc)
		return &info, nil
	}

	if _, err := s.store.Update(ctx, document.CollectionUsers, acc.ID, document.Fields{"role": role}); err != nil {
		s.logger.Error("Failed to update user role", zap.String("user_id", acc.ID), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to update user", err)
	}
	acc.Role = role
	s.publish(ctx, document.NewChangedEvent(document.CollectionUsers, acc.ID, document.OpUpdate))
	if err := s.revocations.RevokeUser(ctx, acc.ID, s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke tokens after role change", zap.String("user_id", acc.ID), zap.Error(err))
	}

	s.logger.Info("User role changed",
		zap.String("user_id", acc.ID),
		zap.String("role", role),
		zap.String("changed_by", input.ActorID))
	info := toUserInfo(acc)
	return &info, nil
}

// DeleteUser removes an account. Its tokens are revoked by the
// document.changed handler.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return shared.NewDomainError("INVALID_INPUT", "Administrators cannot delete their own account")
	}
	if err := s.store.Delete(ctx, document.CollectionUsers, userID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to delete user", zap.String("user_id", userID), zap.Error(err))
		return shared.WrapDomainError("INTERNAL_ERROR", "Failed to delete user", err)
	}
	s.publish(ctx, document.NewChangedEvent(document.CollectionUsers, userID, document.OpDelete))

	s.logger.Info("User deleted", zap.String("user_id", userID), zap.String("deleted_by", actorID))
	return nil
}

// EnsureBootstrapAdmin creates the first administrator when the users
// collection is empty. It reports whether an account was created.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, input BootstrapAdminInput) (bool, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return false, nil
	}
	count, err := document.Count(ctx, s.store, document.CollectionUsers)
	if err != nil {
		return false, shared.WrapDomainError("INTERNAL_ERROR", "Failed to count users", err)
	}
	if count > 0 {
		return false, nil
	}
	name := input.Name
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	if _, err := s.Register(ctx, RegisterInput{
		Name:     name,
		Email:    input.Email,
		Password: input.Password,
		Role:     identity.RoleAdmin,
	}); err != nil {
		return false, err
	}
	s.logger.Info("Bootstrap administrator created", zap.String("email", identity.NormalizeEmail(input.Email)))
	return true, nil
}

func (s *AuthService) account(ctx context.Context, userID string) (*identity.Account, error) {
	doc, err := s.store.Get(ctx, document.CollectionUsers, userID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to load user", zap.String("user_id", userID), zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load user", err)
	}
	return identity.AccountFromDocument(*doc), nil
}

// findByEmail returns nil without error when no user has the email
func (s *AuthService) findByEmail(ctx context.Context, email string) (*identity.Account, error) {
	docs, err := s.store.List(ctx, document.CollectionUsers)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to load users", err)
	}
	for _, doc := range docs {
		if identity.NormalizeEmail(doc.String("email")) == email {
			return identity.AccountFromDocument(doc), nil
		}
	}
	return nil, nil
}

func (s *AuthService) publish(ctx context.Context, event shared.DomainEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event_type", event.EventType()), zap.Error(err))
	}
}

func tokenInput(acc *identity.Account) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		UserID: acc.ID,
		Email:  acc.Email,
		Name:   acc.Name,
		Role:   acc.Role,
	}
}

func refreshError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrInvalidClaims):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Failed to validate refresh token")
	}
}
