package sessions

import "context"

// Repo stores sessions by ID. Replace is a compare-and-swap on Version: it fails with
// errors.ErrVersionConflict when the stored version differs from expectedVersion.
type Repo interface {
	Create(ctx context.Context, session Session) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	Replace(ctx context.Context, expectedVersion int64, next Session) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}
