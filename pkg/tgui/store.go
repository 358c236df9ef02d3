package tgui

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultTokenTTL = 15 * time.Minute
	defaultTokenMax = 5000
)

var ErrTokenNotFound = errors.New("tgui: token not found")

// TokenStore keeps large callback payloads server-side.
//
// Telegram limits callback_data to 64 bytes, so rich flows store the payload
// here and pass only the short token. Entries expire after the TTL and the
// least recently used ones are evicted beyond the size limit.
//
// Tokens never contain ':' and are safe as callback payloads.
type TokenStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewTokenStore creates a store. ttl <= 0 means 15m, max <= 0 means 5000.
func NewTokenStore(ttl time.Duration, max int) *TokenStore {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if max <= 0 {
		max = defaultTokenMax
	}
	return &TokenStore{lru: expirable.NewLRU[string, []byte](max, nil, ttl)}
}

// PutBytes stores b and returns a short token ("~" + 8 chars).
func (s *TokenStore) PutBytes(b []byte) string {
	if s == nil {
		return ""
	}
	var buf [6]byte
	for {
		_, _ = rand.Read(buf[:])
		tok := "~" + base64.RawURLEncoding.EncodeToString(buf[:])
		if s.lru.Contains(tok) {
			continue
		}
		s.lru.Add(tok, append([]byte(nil), b...))
		return tok
	}
}

// PutString stores a string and returns a token.
func (s *TokenStore) PutString(v string) string {
	return s.PutBytes([]byte(v))
}

// PutJSON stores JSON-marshaled v and returns a token.
func (s *TokenStore) PutJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return s.PutBytes(b), nil
}

// GetBytes returns stored bytes for tok.
func (s *TokenStore) GetBytes(tok string) ([]byte, bool) {
	if s == nil || tok == "" {
		return nil, false
	}
	b, ok := s.lru.Get(tok)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// GetString returns stored string for tok.
func (s *TokenStore) GetString(tok string) (string, bool) {
	b, ok := s.GetBytes(tok)
	return string(b), ok
}

// GetJSON unmarshals stored bytes into out.
func (s *TokenStore) GetJSON(tok string, out any) error {
	b, ok := s.GetBytes(tok)
	if !ok {
		return ErrTokenNotFound
	}
	return json.Unmarshal(b, out)
}

// Take returns and removes the payload, so a token is usable once. Of
// concurrent callers with the same token only the one whose Remove succeeds
// gets the payload.
func (s *TokenStore) Take(tok string) ([]byte, bool) {
	if s == nil || tok == "" {
		return nil, false
	}
	b, ok := s.lru.Peek(tok)
	if !ok || !s.lru.Remove(tok) {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

// Len returns the number of live entries.
func (s *TokenStore) Len() int {
	if s == nil {
		return 0
	}
	return s.lru.Len()
}
