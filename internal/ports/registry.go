package ports

import (
	"context"

	"hubclean/internal/types"
)

// RegistryPort is the boundary to the image registry API. ListTags must
// return tags sorted newest-first by last update, with stable ordering
// for equal timestamps.
type RegistryPort interface {
	Login(ctx context.Context) (string, error)
	ListRepositories(ctx context.Context, token string) ([]string, error)
	ListTags(ctx context.Context, token string, repo string) ([]types.Tag, error)
	DeleteTag(ctx context.Context, token string, repo string, name string) error
}
