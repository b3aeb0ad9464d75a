package messaging

import "context"

// Group is one group chat visible to the session.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the narrow messaging capability the dispatcher needs. The session
// and transport machinery behind it is opaque.
type Client interface {
	// IsConnected reports whether the underlying session can send right now.
	IsConnected(ctx context.Context) bool

	// SendImage delivers an image with a caption to one destination. image is
	// either a public URL or a local file path.
	SendImage(ctx context.Context, destination string, image string, filename string, caption string) error

	// ListGroups returns the group chats available to the session.
	ListGroups(ctx context.Context) ([]Group, error)
}
