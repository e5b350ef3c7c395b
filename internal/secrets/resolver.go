package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/personio-adapter/pkg/secrets"
	"github.com/Checker-Finance/personio-adapter/pkg/utils"
)

// Credentials is the client_id/client_secret pair used against the Personio
// authentication endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Resolver fetches Personio API credentials from a secrets provider,
// caching the result so a scheduled run does not hit AWS on every sync.
//
// Secret JSON format: {"client_id": "...", "client_secret": "..."}
type Resolver struct {
	logger     *zap.Logger
	provider   pkgsecrets.Provider
	cache      *pkgsecrets.Cache[Credentials]
	secretName string
}

// NewResolver constructs a credentials resolver backed by provider. secretName
// is the full secret path, e.g. "prod/personio/api".
func NewResolver(
	logger *zap.Logger,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[Credentials],
	secretName string,
) *Resolver {
	return &Resolver{
		logger:     logger,
		provider:   provider,
		cache:      cache,
		secretName: secretName,
	}
}

// Resolve returns the Personio credentials, from cache when fresh.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	if creds, ok := r.cache.Get(r.secretName); ok {
		return creds, nil
	}

	raw, err := r.provider.GetSecret(ctx, r.secretName)
	if err != nil {
		return Credentials{}, fmt.Errorf("fetch secret %q: %w", r.secretName, err)
	}

	creds, err := parseCredentials(raw)
	if err != nil {
		return Credentials{}, fmt.Errorf("secret %q: %w", r.secretName, err)
	}

	r.cache.Put(r.secretName, creds)
	r.logger.Info("secrets.credentials_resolved",
		zap.String("secret", r.secretName),
		zap.String("client_id", utils.MaskSecret(creds.ClientID)))

	return creds, nil
}

// Invalidate drops the cached credentials, forcing a re-fetch on the next
// Resolve. Used after an authentication failure that suggests rotation.
func (r *Resolver) Invalidate() {
	r.cache.Bust(r.secretName)
}

func parseCredentials(m map[string]string) (Credentials, error) {
	creds := Credentials{
		ClientID:     m["client_id"],
		ClientSecret: m["client_secret"],
	}
	if creds.ClientID == "" {
		return Credentials{}, fmt.Errorf("missing required field 'client_id'")
	}
	if creds.ClientSecret == "" {
		return Credentials{}, fmt.Errorf("missing required field 'client_secret'")
	}
	return creds, nil
}
