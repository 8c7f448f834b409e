package interfaces

import "context"

// Mirror copies the durable state file to and from remote storage. Upload is
// best-effort after every local write; Restore runs once at startup before
// the monitor loop begins.
type Mirror interface {
	Upload(ctx context.Context, localPath string) error
	Restore(ctx context.Context, localPath string) error
}
