// Package session реализует управление сессиями поверх внешнего провайдера
// аутентификации и долговременного слота учётных данных.
package session

import (
	"context"
	"errors"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/taash/storefront-system/internal/identity"
	"github.com/taash/storefront-system/internal/model"
	"github.com/taash/storefront-system/internal/repository"
	"github.com/taash/storefront-system/internal/validation"
)

// ErrNoSession возвращается при восстановлении, если слот учётных данных пуст.
var ErrNoSession = errors.New("no session")

// IdentityProvider описывает парольные операции провайдера аутентификации.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*identity.Credential, error)
	SignUp(ctx context.Context, email, password string) (*identity.Credential, error)
}

// TokenVerifier описывает проверку и отзыв токенов провайдера.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// CredentialSlot описывает долговременный слот кэшированных учётных данных.
type CredentialSlot interface {
	SaveCredential(ctx context.Context, storeName string, session model.Session) error
	LoadCredential(ctx context.Context, storeName, subjectID string) (*model.Session, error)
	DeleteCredential(ctx context.Context, storeName, subjectID string) error
}

// ProfileStore описывает запись профиля покупателя у внешнего сервиса заказов.
type ProfileStore interface {
	SaveUser(ctx context.Context, u model.User) error
}

// Guard — охранник сессий: выполняет вход, регистрацию, выход и
// восстановление сессии после перезапуска клиента.
type Guard struct {
	provider  IdentityProvider
	verifier  TokenVerifier
	profiles  ProfileStore
	slot      CredentialSlot
	storeName string
	logger    *zap.Logger
}

// NewGuard создаёт охранник сессий.
func NewGuard(provider IdentityProvider, verifier TokenVerifier, profiles ProfileStore, slot CredentialSlot, storeName string, logger *zap.Logger) *Guard {
	return &Guard{
		provider:  provider,
		verifier:  verifier,
		profiles:  profiles,
		slot:      slot,
		storeName: storeName,
		logger:    logger,
	}
}

// SignIn выполняет вход по email и паролю. Роль берётся из пользовательских
// утверждений токена, а не из профиля: профиль покупатель может редактировать,
// утверждения — только провайдер.
func (g *Guard) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if err := validation.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	cred, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	return g.establish(ctx, cred)
}

// Register создаёт аккаунт у провайдера и профиль покупателя у сервиса заказов.
func (g *Guard) Register(ctx context.Context, email, password, fullName string) (*model.Session, error) {
	if err := validation.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	cred, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	// Профиль дополняет аккаунт, но не является условием регистрации:
	// сбой записи не отменяет уже созданный у провайдера аккаунт.
	if err := g.profiles.SaveUser(ctx, model.User{
		ID:       cred.SubjectID,
		Email:    cred.Email,
		FullName: fullName,
	}); err != nil {
		g.logger.Error("save user profile", zap.Error(err), zap.String("subjectID", cred.SubjectID))
	}

	return g.establish(ctx, cred)
}

func (g *Guard) establish(ctx context.Context, cred *identity.Credential) (*model.Session, error) {
	role, err := g.resolveRole(ctx, cred.Token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	session := model.Session{
		SubjectID: cred.SubjectID,
		Role:      role,
		Token:     cred.Token,
	}

	// Слот — кэш для восстановления после перезапуска; его сбой
	// деградирует живучесть сессии, но не отменяет вход.
	if err := g.slot.SaveCredential(ctx, g.storeName, session); err != nil {
		g.logger.Error("save credential slot", zap.Error(err), zap.String("subjectID", session.SubjectID))
	}

	return &session, nil
}

func (g *Guard) resolveRole(ctx context.Context, token string) (model.Role, error) {
	verified, err := g.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	if admin, ok := verified.Claims["admin"].(bool); ok && admin {
		return model.RoleAdmin, nil
	}
	return model.RoleCustomer, nil
}

// Resume восстанавливает сессию из слота учётных данных. Просроченный или
// отозванный токен очищает слот и завершается ErrNoSession: с точки зрения
// вызывающего это неотличимо от отсутствия сессии.
func (g *Guard) Resume(ctx context.Context, subjectID string) (*model.Session, error) {
	cached, err := g.slot.LoadCredential(ctx, g.storeName, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load credential slot: %w", err)
	}

	role, err := g.resolveRole(ctx, cached.Token)
	if err != nil {
		if derr := g.slot.DeleteCredential(ctx, g.storeName, subjectID); derr != nil {
			g.logger.Error("clear stale credential slot", zap.Error(derr), zap.String("subjectID", subjectID))
		}
		return nil, ErrNoSession
	}

	cached.Role = role
	return cached, nil
}

// SignOut завершает сессию: отзывает refresh-токены и очищает слот.
// Операция идемпотентна, повторный выход не является ошибкой.
func (g *Guard) SignOut(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return nil
	}

	if err := g.verifier.RevokeRefreshTokens(ctx, subjectID); err != nil {
		// Отзыв — лучшая попытка: провайдер мог уже не знать субъекта.
		g.logger.Warn("revoke refresh tokens", zap.Error(err), zap.String("subjectID", subjectID))
	}

	if err := g.slot.DeleteCredential(ctx, g.storeName, subjectID); err != nil {
		return fmt.Errorf("delete credential slot: %w", err)
	}

	return nil
}
