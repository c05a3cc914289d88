package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
)

// fakeSecretClient is an in-memory Secret Manager keyed by secret path. Only
// the latest version is retained, which matches how the service reads.
type fakeSecretClient struct {
	exists   map[string]bool
	versions map[string][]byte
	created  []string
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{exists: make(map[string]bool), versions: make(map[string][]byte)}
}

func (f *fakeSecretClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if !f.exists[req.Name] {
		return nil, errors.New("secret not found")
	}
	return &secretmanagerpb.Secret{Name: req.Name}, nil
}

func (f *fakeSecretClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	path := req.Parent + "/secrets/" + req.SecretId
	f.exists[path] = true
	f.created = append(f.created, req.SecretId)
	return &secretmanagerpb.Secret{Name: path}, nil
}

func (f *fakeSecretClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	if !f.exists[req.Parent] {
		return nil, errors.New("secret not found")
	}
	f.versions[req.Parent] = req.Payload.Data
	return &secretmanagerpb.SecretVersion{Name: req.Parent + "/versions/latest"}, nil
}

func (f *fakeSecretClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	path := strings.TrimSuffix(req.Name, "/versions/latest")
	data, ok := f.versions[path]
	if !ok {
		return nil, errors.New("secret version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}, nil
}

func (f *fakeSecretClient) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest, opts ...gax.CallOption) error {
	if !f.exists[req.Name] {
		return errors.New("secret not found")
	}
	delete(f.exists, req.Name)
	delete(f.versions, req.Name)
	return nil
}

func newSecretFixture() (*secretManagerService, *fakeSecretClient) {
	client := newFakeSecretClient()
	return &secretManagerService{client: client, projectID: "proj"}, client
}

func TestStoreProviderTokenCreatesSecretOnFirstWrite(t *testing.T) {
	svc, client := newSecretFixture()

	if err := svc.StoreProviderToken(context.Background(), "replicate", "r8_test"); err != nil {
		t.Fatalf("StoreProviderToken returned error: %v", err)
	}
	if len(client.created) != 1 || client.created[0] != "replicate-api-token" {
		t.Errorf("created secrets = %v, want [replicate-api-token]", client.created)
	}

	token, err := svc.GetProviderToken(context.Background(), "replicate")
	if err != nil {
		t.Fatalf("GetProviderToken returned error: %v", err)
	}
	if token != "r8_test" {
		t.Errorf("token = %q, want r8_test", token)
	}
}

func TestStoreProviderTokenRotatesWithoutRecreating(t *testing.T) {
	svc, client := newSecretFixture()

	if err := svc.StoreProviderToken(context.Background(), "replicate", "r8_old"); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if err := svc.StoreProviderToken(context.Background(), "replicate", "r8_new"); err != nil {
		t.Fatalf("second store: %v", err)
	}
	if len(client.created) != 1 {
		t.Errorf("secret created %d times, want 1", len(client.created))
	}

	token, err := svc.GetProviderToken(context.Background(), "replicate")
	if err != nil {
		t.Fatalf("GetProviderToken returned error: %v", err)
	}
	if token != "r8_new" {
		t.Errorf("token = %q, want the rotated value r8_new", token)
	}
}

func TestGetProviderTokenMissing(t *testing.T) {
	svc, _ := newSecretFixture()

	if _, err := svc.GetProviderToken(context.Background(), "replicate"); err == nil {
		t.Fatal("expected error for a token that was never stored")
	}
}

func TestDeleteProviderToken(t *testing.T) {
	svc, _ := newSecretFixture()

	if err := svc.StoreProviderToken(context.Background(), "replicate", "r8_test"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := svc.DeleteProviderToken(context.Background(), "replicate"); err != nil {
		t.Fatalf("DeleteProviderToken returned error: %v", err)
	}
	if _, err := svc.GetProviderToken(context.Background(), "replicate"); err == nil {
		t.Fatal("token still readable after delete")
	}
}
