package router

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSecretStore scripts the stored provider token.
type fakeSecretStore struct {
	token string
	err   error
	gets  int
}

func (f *fakeSecretStore) StoreProviderToken(ctx context.Context, provider, token string) error {
	return nil
}

func (f *fakeSecretStore) GetProviderToken(ctx context.Context, provider string) (string, error) {
	f.gets++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeSecretStore) DeleteProviderToken(ctx context.Context, provider string) error {
	return nil
}

func TestResolveProviderTokenPrefersEnvironment(t *testing.T) {
	secrets := &fakeSecretStore{token: "r8_stored"}

	token := resolveProviderToken(context.Background(), "r8_env", secrets, zerolog.Nop())
	if token != "r8_env" {
		t.Errorf("token = %q, want the environment value r8_env", token)
	}
	if secrets.gets != 0 {
		t.Error("Secret Manager consulted despite a configured token")
	}
}

func TestResolveProviderTokenFallsBackToSecretManager(t *testing.T) {
	secrets := &fakeSecretStore{token: "r8_stored"}

	token := resolveProviderToken(context.Background(), "", secrets, zerolog.Nop())
	if token != "r8_stored" {
		t.Errorf("token = %q, want the stored value r8_stored", token)
	}
}

func TestResolveProviderTokenEmptyWithoutStore(t *testing.T) {
	if token := resolveProviderToken(context.Background(), "", nil, zerolog.Nop()); token != "" {
		t.Errorf("token = %q, want empty", token)
	}
}

func TestResolveProviderTokenEmptyOnLookupError(t *testing.T) {
	secrets := &fakeSecretStore{err: errors.New("permission denied")}

	if token := resolveProviderToken(context.Background(), "", secrets, zerolog.Nop()); token != "" {
		t.Errorf("token = %q, want empty on lookup failure", token)
	}
}
