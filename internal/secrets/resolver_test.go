package secrets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/personio-adapter/pkg/secrets"
)

type fakeProvider struct {
	secrets map[string]map[string]string
	calls   int
	err     error
}

func (f *fakeProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.secrets[key]
	if !ok {
		return nil, fmt.Errorf("secret not found: %s", key)
	}
	return s, nil
}

func (f *fakeProvider) ListSecrets(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func newResolver(p *fakeProvider) *Resolver {
	cache := pkgsecrets.NewCache[Credentials](time.Minute)
	return NewResolver(zap.NewNop(), p, cache, "prod/personio/api")
}

func TestResolveFetchesAndCaches(t *testing.T) {
	p := &fakeProvider{secrets: map[string]map[string]string{
		"prod/personio/api": {"client_id": "id-1", "client_secret": "sec-1"},
	}}
	r := newResolver(p)

	creds, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-1", creds.ClientID)
	assert.Equal(t, "sec-1", creds.ClientSecret)

	// Second call must come from cache
	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestResolveMissingFields(t *testing.T) {
	p := &fakeProvider{secrets: map[string]map[string]string{
		"prod/personio/api": {"client_id": "id-1"},
	}}
	r := newResolver(p)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_secret")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	p := &fakeProvider{secrets: map[string]map[string]string{
		"prod/personio/api": {"client_id": "id-1", "client_secret": "sec-1"},
	}}
	r := newResolver(p)

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	r.Invalidate()

	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestResolveProviderError(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("throttled")}
	r := newResolver(p)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prod/personio/api")
}
