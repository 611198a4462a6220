// Package token converts provider access tokens to and from the opaque
// strings handed to clients. Nothing is stored server-side: everything
// needed to call the provider again travels inside the string.
package token

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/alexjbarnes/npbtn/internal/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/oauth2"
)

// Record is the access token as issued by the provider.
type Record struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// FromOAuth2 builds a Record from an exchanged token. Granted scopes are
// read from the space separated "scope" field of the token response.
func FromOAuth2(t *oauth2.Token) Record {
	r := Record{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}

	if !t.Expiry.IsZero() {
		r.Expiry = t.Expiry.UTC()
	}

	if s, ok := t.Extra("scope").(string); ok {
		if scopes := strings.Fields(s); len(scopes) > 0 {
			r.Scopes = scopes
		}
	}

	return r
}

// OAuth2 returns the record as an oauth2 token suitable for a static
// token source.
func (r Record) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.Expiry,
	}
}

// Expired reports whether the record carries an expiry that lies before now.
// A zero expiry never expires.
func (r Record) Expired(now time.Time) bool {
	return !r.Expiry.IsZero() && now.After(r.Expiry)
}

// Codec encodes records into URL-safe opaque strings. With a key the JSON
// is sealed with XChaCha20-Poly1305 first; without one it is only encoded.
type Codec struct {
	aead cipher.AEAD
}

// New returns a Codec. A nil or empty key selects the plain encoding.
func New(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return &Codec{}, nil
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating token cipher: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Sealed reports whether the codec encrypts records.
func (c *Codec) Sealed() bool {
	return c.aead != nil
}

// Encode serializes r into an opaque string. An empty scope list is
// omitted and decodes as nil.
func (c *Codec) Encode(r Record) (string, error) {
	if len(r.Scopes) == 0 {
		r.Scopes = nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshaling token: %w", err)
	}

	if c.aead != nil {
		nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(data)+c.aead.Overhead())
		if _, err := rand.Read(nonce); err != nil {
			return "", fmt.Errorf("generating nonce: %w", err)
		}

		data = c.aead.Seal(nonce, nonce, data, nil)
	}

	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses an opaque string produced by Encode. Every failure wraps
// ErrTokenDecode.
func (c *Codec) Decode(s string) (Record, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", apperrors.ErrTokenDecode, err)
	}

	if c.aead != nil {
		ns := c.aead.NonceSize()
		if len(data) < ns+c.aead.Overhead() {
			return Record{}, fmt.Errorf("%w: sealed token too short", apperrors.ErrTokenDecode)
		}

		data, err = c.aead.Open(nil, data[:ns], data[ns:], nil)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", apperrors.ErrTokenDecode, err)
		}
	}

	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("%w: invalid JSON", apperrors.ErrTokenDecode)
	}

	if at := gjson.GetBytes(data, "access_token"); at.Type != gjson.String || at.Str == "" {
		return Record{}, fmt.Errorf("%w: missing access token", apperrors.ErrTokenDecode)
	}

	if exp := gjson.GetBytes(data, "expiry"); exp.Exists() && exp.Type != gjson.String {
		return Record{}, fmt.Errorf("%w: expiry is not a timestamp", apperrors.ErrTokenDecode)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", apperrors.ErrTokenDecode, err)
	}

	return r, nil
}
