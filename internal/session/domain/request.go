package domain

import (
	"encoding/json"
	"net/http"
)

// Request - описание одного исходящего вызова без учетных данных.
type Request struct {
	Endpoint string
	Method   string
	Body     []byte
	Header   http.Header
}

// Response - ответ транспорта.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON разбирает тело ответа. Ошибка разбора классифицируется как MalformedResponse.
func (r *Response) DecodeJSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return &Error{Kind: KindMalformedResponse, Op: "decode response", StatusCode: r.StatusCode, Err: err}
	}
	return nil
}
