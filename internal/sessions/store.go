package sessions

import (
	"context"
	"time"
)

// Store tracks the identifiers (jti) of issued tokens. A token is usable only
// while its record exists, so deleting a record revokes the token. Records
// expire on their own after the token lifetime.
type Store interface {
	// Register records a token id for ttl. Re-registering the same id resets its ttl.
	Register(ctx context.Context, userID, tokenID string, ttl time.Duration) error
	// Revoke deletes one record (logout of one device).
	Revoke(ctx context.Context, userID, tokenID string) error
	// RevokeAll deletes every record of the user (logout everywhere).
	RevokeAll(ctx context.Context, userID string) error
	// Consume deletes one record and reports whether it was still there.
	// Two concurrent callers never both see true.
	Consume(ctx context.Context, userID, tokenID string) (bool, error)
	// Exists reports whether the record is still present.
	Exists(ctx context.Context, userID, tokenID string) (bool, error)
}
