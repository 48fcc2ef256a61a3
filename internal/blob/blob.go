// Package blob defines the blob storage collaborator used for event logos.
package blob

import (
	"context"
	"io"
)

// Store uploads logo files and yields a URL the dashboard can embed.
type Store interface {
	// Upload stores the file under a generated key derived from filename and
	// returns its public URL.
	Upload(ctx context.Context, filename string, data io.Reader, contentType string) (string, error)
}
