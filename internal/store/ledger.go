package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned by Open when no database URL is set.
	ErrNotConfigured = errors.New("remote ledger not configured")
	// ErrUnsupportedScheme is returned by Open for an unknown URL scheme.
	ErrUnsupportedScheme = errors.New("unsupported database url scheme")
	// ErrConflict is returned when an Update lost every optimistic retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrClosed is returned by operations on a closed ledger.
	ErrClosed = errors.New("ledger closed")
	// ErrInvalidPath is returned for an empty document path.
	ErrInvalidPath = errors.New("invalid document path")
)

// Change is one observed value of a document path. Value is nil when the
// path holds nothing.
type Change struct {
	Path      string
	Value     []byte
	Revision  int64
	UpdatedAt time.Time
}

// Exists reports whether the path held a value.
func (c Change) Exists() bool {
	return c.Value != nil
}

// Ledger is a path → JSON document store with fan-out of every write to
// every subscriber, the writer included.
//
// Revisions per path strictly increase with each write. A subscription
// never delivers a revision lower than or equal to one it already
// delivered; intermediate revisions may be skipped when the reader is slow.
type Ledger interface {
	// Set overwrites the value at path and returns the new revision.
	Set(ctx context.Context, path string, value []byte) (int64, error)

	// Update shallow-merges partial into the JSON object at path. A JSON
	// null removes the key. A missing document is created.
	Update(ctx context.Context, path string, partial map[string]json.RawMessage) (int64, error)

	// ReadOnce returns the current value at path.
	ReadOnce(ctx context.Context, path string) (Change, error)

	// Subscribe delivers the current value and then every later one until
	// ctx is done or the subscription is closed.
	Subscribe(ctx context.Context, path string) (*Subscription, error)

	Close() error
}

const defaultPollInterval = time.Second

type options struct {
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures a ledger backend.
type Option func(*options)

// WithPollInterval sets how often durable backends look for writes made by
// other processes.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithClock overrides the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{pollInterval: defaultPollInterval, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pollInterval <= 0 {
		o.pollInterval = defaultPollInterval
	}
	return o
}

// Open selects a backend from the database URL scheme:
//
//	sqlite://<path>, file:<path>     SQLite database file
//	mongodb://..., mongodb+srv://... MongoDB (database from the URL path)
//	memory://<name>                  shared in-process store
func Open(ctx context.Context, databaseURL string, opts ...Option) (Ledger, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNotConfigured
	}

	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(databaseURL, "sqlite://"), opts...)
	case strings.HasPrefix(databaseURL, "file:"):
		return OpenSQLite(databaseURL, opts...)
	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		return OpenMongo(ctx, databaseURL, opts...)
	case strings.HasPrefix(databaseURL, "memory://"):
		u, err := url.Parse(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open memory ledger: %w", err)
		}
		return SharedMemory(u.Host + u.Path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, schemeOf(databaseURL))
	}
}

func schemeOf(raw string) string {
	if i := strings.Index(raw, ":"); i > 0 {
		return raw[:i]
	}
	return raw
}

func checkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrInvalidPath
	}
	return nil
}
