// Package transport выполняет запросы функциональных модулей к backend по HTTP.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sessiongate/internal/session/domain"
)

// Константы ошибок.
const (
	ErrBuildRequest = "failed to build request"
	ErrReadBody     = "failed to read response body"
	ErrBodyTooLarge = "response body exceeds limit"
)

const opDo = "transport request"

// MaxResponseBody - наибольший принимаемый размер тела ответа.
const MaxResponseBody = 8 << 20

// Options настраивает HTTP.
type Options struct {
	// BaseURL добавляется к относительным endpoint.
	BaseURL string
	// Timeout общего http.Client; попытки дополнительно ограничивает Executor.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTP - ports.Transport поверх net/http.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// New создает HTTP.
func New(opts Options) *HTTP {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTP{baseURL: strings.TrimRight(opts.BaseURL, "/"), client: client}
}

// Do выполняет запрос с заголовком Authorization: Bearer.
// Любой полученный ответ возвращается без ошибки, классификация статуса - дело вызывающего.
func (t *HTTP) Do(ctx context.Context, req domain.Request, bearer string) (*domain.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.url(req.Endpoint), body)
	if err != nil {
		return nil, domain.NewError(domain.KindClientError, opDo, fmt.Errorf("%s: %w", ErrBuildRequest, err))
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrReadBody, err)
	}
	if len(data) > MaxResponseBody {
		return nil, &domain.Error{
			Kind:       domain.KindMalformedResponse,
			Op:         opDo,
			StatusCode: resp.StatusCode,
			Err:        errors.New(ErrBodyTooLarge),
		}
	}
	return &domain.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (t *HTTP) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return t.baseURL + endpoint
}
