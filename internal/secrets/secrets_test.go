package secrets

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

type mockAccessor struct {
	AccessSecretVersionFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

func (m *mockAccessor) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return m.AccessSecretVersionFunc(ctx, req)
}

func (m *mockAccessor) Close() error { return nil }

func TestResourceName(t *testing.T) {
	s := &Store{project: "zwickfi"}

	tests := []struct {
		name string
		want string
	}{
		{"MONARCH_EMAIL", "projects/zwickfi/secrets/MONARCH_EMAIL/versions/latest"},
		{"projects/other/secrets/X/versions/3", "projects/other/secrets/X/versions/3"},
	}
	for _, tt := range tests {
		if got := s.ResourceName(tt.name); got != tt.want {
			t.Errorf("ResourceName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAccess(t *testing.T) {
	var gotName string
	s := &Store{project: "zwickfi", client: &mockAccessor{
		AccessSecretVersionFunc: func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			gotName = req.GetName()
			return &secretmanagerpb.AccessSecretVersionResponse{
				Payload: &secretmanagerpb.SecretPayload{Data: []byte("me@example.com")},
			}, nil
		},
	}}

	v, err := s.Access(context.Background(), "MONARCH_EMAIL")
	if err != nil {
		t.Fatalf("Access: %v", err)
	}
	if v != "me@example.com" {
		t.Errorf("Access() = %q", v)
	}
	if gotName != "projects/zwickfi/secrets/MONARCH_EMAIL/versions/latest" {
		t.Errorf("requested %q", gotName)
	}
}

func TestAccess_Error(t *testing.T) {
	boom := errors.New("permission denied")
	s := &Store{project: "zwickfi", client: &mockAccessor{
		AccessSecretVersionFunc: func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return nil, boom
		},
	}}

	if _, err := s.Access(context.Background(), "MONARCH_PASSWORD"); !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped error, got %v", err)
	}
}

func TestNewStore_RequiresProject(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatal("Expected error for empty project")
	}
}
