package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// KeySource supplies the API key used to authenticate generateContent calls.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key taken directly from configuration.
type StaticKey string

func (k StaticKey) APIKey(_ context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return key, nil
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the expected JSON shape stored in SSM for the API key.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStoreKey reads the key from a parameter holding {"token": "..."}.
type ParamStoreKey struct {
	Getter Getter
	Name   string
}

func (k ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	return fetchAPIKeyFromParamStore(ctx, k.Getter, k.Name)
}

// KeyParameterName returns the parameter holding the API key under prefix.
func KeyParameterName(prefix string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + "/gemini-api-key"
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("gemini: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("gemini: key parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch key from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("gemini: unmarshal paramstore key value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("gemini: API key is empty")
	}
	return tp.Token, nil
}
