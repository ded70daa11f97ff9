// Package credentials stores third-party API keys in the integration_tokens
// table so deployments can rotate them without touching the environment.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"materials/internal/infra"
	"materials/internal/sqlinline"
)

const ProviderGemini = "gemini"

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Resolve returns explicit when it is set and otherwise the stored token for
// provider. A missing row yields an empty key.
func (s *Store) Resolve(ctx context.Context, provider, explicit string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}
	return s.Token(ctx, provider)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("load %s token: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " api key is required")
	}
	raw, err := json.Marshal(map[string]any{"source": "cli"})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("store %s token: %w", provider, err)
	}
	return nil
}
