package tagedit

import "context"

// Remote is the system of record for tags. Each call settles exactly once,
// either nil or an error; there is no partial success.
type Remote interface {
	RenameTag(ctx context.Context, id, name string) error
	DeleteTag(ctx context.Context, id string) error
}
