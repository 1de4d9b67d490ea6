// Package exchange реализует ports.TokenExchanger поверх JSON API сервиса авторизации.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"sessiongate/internal/session/domain"
	"sessiongate/pkg/logger"
)

// Константы для логирования.
const (
	LogExchangeRequest  = "token exchange request"
	LogExchangeRejected = "token exchange rejected by server"
	LogExchangeFailed   = "token exchange failed"

	ErrBuildRequest     = "failed to build exchange request"
	ErrEncodeRequest    = "failed to encode exchange request"
	ErrReadResponse     = "failed to read exchange response"
	ErrMissingAccess    = "exchange response has no access token"
	ErrMissingRefresh   = "login response has no refresh token"
	ErrResponseTooLarge = "exchange response exceeds limit"
)

const (
	refreshPath = "/auth/refresh"
	loginPath   = "/auth/login"
	logoutPath  = "/auth/logout"

	opRefresh = "refresh exchange"
	opLogin   = "login exchange"
	opLogout  = "logout exchange"

	// Коды ошибок OAuth, означающие, что refresh-токен больше не примут.
	oauthInvalidGrant = "invalid_grant"
	oauthInvalidToken = "invalid_token"

	maxResponseBody = 1 << 20

	// maxExpiresIn - наибольшее expires_in, не переполняющее time.Duration.
	maxExpiresIn = int64(math.MaxInt64 / int64(time.Second))
)

// DefaultTimeout ограничивает один HTTP-вызов, если Timeout не задан.
const DefaultTimeout = 10 * time.Second

// Options настраивает Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Now        func() time.Time
}

// Client обменивается токенами с сервисом авторизации.
type Client struct {
	baseURL string
	http    *http.Client
	parser  *jwt.Parser
	now     func() time.Time
}

// New создает Client. Если HTTPClient не задан, создается клиент с Timeout.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		parser:  jwt.NewParser(),
		now:     opts.Now,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh обменивает refresh-токен на новую пару.
// Пустой refresh_token в ответе оставляет поле пары пустым: старый токен сохраняет координатор.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	body, err := c.post(ctx, opRefresh, refreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return domain.TokenPair{}, err
	}
	return c.decodePair(opRefresh, body)
}

// Login выполняет вход по email и паролю.
func (c *Client) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	body, err := c.post(ctx, opLogin, loginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		return domain.TokenPair{}, err
	}
	pair, err := c.decodePair(opLogin, body)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if pair.Refresh.Value == "" {
		return domain.TokenPair{}, domain.NewError(domain.KindMalformedResponse, opLogin, errors.New(ErrMissingRefresh))
	}
	return pair, nil
}

// Logout отзывает refresh-токен на сервере.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.post(ctx, opLogout, logoutPath, refreshRequest{RefreshToken: refreshToken})
	return err
}

func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	log := logger.Log(ctx).Named("exchange").With(zap.String("path", path))

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrEncodeRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrBuildRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Debug(ctx, LogExchangeRequest)
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn(ctx, LogExchangeFailed, zap.Error(err))
		return nil, domain.FromTransport(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, domain.FromTransport(op, fmt.Errorf("%s: %w", ErrReadResponse, err))
	}
	if len(body) > maxResponseBody {
		return nil, &domain.Error{
			Kind:       domain.KindMalformedResponse,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(ErrResponseTooLarge),
		}
	}

	if classified := classify(op, resp.StatusCode, body); classified != nil {
		log.Warn(ctx, LogExchangeRejected,
			zap.Int("status", resp.StatusCode),
			zap.Stringer("kind", classified.Kind))
		return nil, classified
	}
	return body, nil
}

// classify переводит ответ сервиса авторизации в доменную ошибку.
// 401, 403 и коды invalid_grant/invalid_token означают отказ в сессии;
// остальные 4xx - ошибку клиента, 5xx - временный сбой.
func classify(op string, status int, body []byte) *domain.Error {
	if status < http.StatusBadRequest {
		return nil
	}
	kind := domain.KindClientError
	switch {
	case status >= http.StatusInternalServerError:
		kind = domain.KindTransient
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = domain.KindSessionExpired
	default:
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil &&
			(errResp.Error == oauthInvalidGrant || errResp.Error == oauthInvalidToken) {
			kind = domain.KindSessionExpired
		}
	}
	if op == opLogin && kind == domain.KindSessionExpired {
		// Неверные учетные данные при входе не означают потерю сессии.
		kind = domain.KindClientError
	}
	return &domain.Error{Kind: kind, Op: op, StatusCode: status, Body: body}
}

func (c *Client) decodePair(op string, body []byte) (domain.TokenPair, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.TokenPair{}, domain.NewError(domain.KindMalformedResponse, op, err)
	}
	if tr.AccessToken == "" {
		return domain.TokenPair{}, domain.NewError(domain.KindMalformedResponse, op, errors.New(ErrMissingAccess))
	}

	pair := domain.TokenPair{
		Access:  domain.AccessToken{Value: tr.AccessToken, ExpiresAt: c.accessExpiry(tr)},
		Refresh: domain.RefreshToken{Value: tr.RefreshToken, ExpiresAt: tr.RefreshExpiresAt},
	}
	if pair.Refresh.Value != "" && pair.Refresh.ExpiresAt.IsZero() {
		pair.Refresh.ExpiresAt = c.claimExpiry(pair.Refresh.Value)
	}
	return pair, nil
}

// accessExpiry выбирает срок действия access-токена: явное поле, expires_in или claim exp.
// Нулевое время означает, что срок неизвестен.
func (c *Client) accessExpiry(tr tokenResponse) time.Time {
	switch {
	case !tr.AccessExpiresAt.IsZero():
		return tr.AccessExpiresAt
	case !tr.ExpiresAt.IsZero():
		return tr.ExpiresAt
	case tr.ExpiresIn > 0:
		return c.now().Add(time.Duration(min(tr.ExpiresIn, maxExpiresIn)) * time.Second)
	default:
		return c.claimExpiry(tr.AccessToken)
	}
}

// claimExpiry читает exp из JWT без проверки подписи: ключ есть только у сервера.
func (c *Client) claimExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
