// Package identity предоставляет клиент парольных операций внешнего провайдера аутентификации.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailInUse возвращается при попытке регистрации на занятый адрес.
	ErrEmailInUse = errors.New("email already in use")
)

// Credential содержит выданные провайдером учётные данные субъекта.
type Credential struct {
	SubjectID string
	Token     string
	Email     string
}

// Client инкапсулирует HTTP-взаимодействие с провайдером аутентификации.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

// NewClient создаёт HTTP-клиент провайдера аутентификации по указанному адресу.
// Временные сбои сети ретраятся; ошибки учётных данных — нет.
func NewClient(baseURL, apiKey string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: rc,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
	Email   string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn выполняет вход по email и паролю.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	return c.call(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp регистрирует новый аккаунт с указанными email и паролем.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	return c.call(ctx, "accounts:signUp", email, password)
}

func (c *Client) call(ctx context.Context, endpoint, email, password string) (*Credential, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("identity client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	url := fmt.Sprintf("%s/v1/%s?key=%s", base, endpoint, c.apiKey)

	body, err := json.Marshal(passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return nil, fmt.Errorf("decode error response: %w", err)
		}
		return nil, mapProviderError(er.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result passwordResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if result.LocalID == "" || result.IDToken == "" {
		return nil, fmt.Errorf("incomplete provider response")
	}

	return &Credential{
		SubjectID: result.LocalID,
		Token:     result.IDToken,
		Email:     result.Email,
	}, nil
}

// mapProviderError переводит коды провайдера в ошибки доменной таксономии.
func mapProviderError(code string) error {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailInUse
	default:
		return fmt.Errorf("provider error: %s", code)
	}
}
