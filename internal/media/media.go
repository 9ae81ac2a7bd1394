package media

import (
	"context"
	"io"
)

// Asset is a stored media object on the hosting service.
type Asset struct {
	PublicID string
	URL      string
}

// Uploader is the media-hosting collaborator. Handlers never talk to the
// storage backend directly.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}
