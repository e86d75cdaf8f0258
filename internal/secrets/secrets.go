// Package secrets reads credentials from Google Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// accessor is the part of the Secret Manager client Store needs.
type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Store resolves short secret names within one project.
type Store struct {
	client  accessor
	project string
}

// NewStore creates a Secret Manager backed store for project.
func NewStore(ctx context.Context, project string, opts ...option.ClientOption) (*Store, error) {
	if project == "" {
		return nil, fmt.Errorf("secrets.NewStore: project is required")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewStore: creating client: %w", err)
	}
	return &Store{client: client, project: project}, nil
}

// Close closes the Secret Manager client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Access returns the latest version of a secret. name is either a short name
// such as "MONARCH_EMAIL" or a full resource name.
func (s *Store) Access(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.ResourceName(name),
	})
	if err != nil {
		return "", fmt.Errorf("secrets.Access: %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

// ResourceName expands a short secret name to
// projects/<project>/secrets/<name>/versions/latest.
func (s *Store) ResourceName(name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name)
}
