// Package sealed сериализует пару токенов для долговременных хранилищ
// и при наличии ключа шифрует ее (NaCl secretbox).
package sealed

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"sessiongate/internal/session/domain"
)

// Константы ошибок.
const (
	ErrEncode     = "failed to encode token pair"
	ErrDecode     = "failed to decode token pair"
	ErrNonce      = "failed to generate nonce"
	ErrDecodeKey  = "failed to decode sealing key"
	ErrKeyLength  = "sealing key must be 32 bytes"
	ErrOpenSealed = "failed to open sealed token pair"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Codec преобразует пару токенов в байты и обратно.
type Codec interface {
	Encode(pair domain.TokenPair) ([]byte, error)
	Decode(data []byte) (domain.TokenPair, error)
}

type record struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// JSON хранит пару открытым текстом.
type JSON struct{}

// Encode сериализует пару в JSON.
func (JSON) Encode(pair domain.TokenPair) ([]byte, error) {
	data, err := json.Marshal(record{
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrEncode, err)
	}
	return data, nil
}

// Decode восстанавливает пару из JSON.
func (JSON) Decode(data []byte) (domain.TokenPair, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%s: %w", ErrDecode, err)
	}
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: r.AccessToken, ExpiresAt: r.AccessExpiresAt},
		Refresh: domain.RefreshToken{Value: r.RefreshToken, ExpiresAt: r.RefreshExpiresAt},
	}, nil
}

// Box шифрует JSON-представление пары ключом secretbox.
// Формат: nonce (24 байта) || sealed.
type Box struct {
	key   [keySize]byte
	plain JSON
}

// NewBox создает Box с 32-байтным ключом.
func NewBox(key []byte) (*Box, error) {
	if len(key) != keySize {
		return nil, errors.New(ErrKeyLength)
	}
	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// Encode шифрует пару со случайным nonce.
func (b *Box) Encode(pair domain.TokenPair) ([]byte, error) {
	plain, err := b.plain.Encode(pair)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrNonce, err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &b.key), nil
}

// Decode расшифровывает и разбирает пару.
func (b *Box) Decode(data []byte) (domain.TokenPair, error) {
	if len(data) < nonceSize+secretbox.Overhead {
		return domain.TokenPair{}, errors.New(ErrOpenSealed)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &b.key)
	if !ok {
		return domain.TokenPair{}, errors.New(ErrOpenSealed)
	}
	return b.plain.Decode(plain)
}

// FromKey возвращает Box для ключа в base64 или JSON, если ключ пуст.
func FromKey(encoded string) (Codec, error) {
	if encoded == "" {
		return JSON{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrDecodeKey, err)
	}
	box, err := NewBox(key)
	if err != nil {
		return nil, err
	}
	return box, nil
}
