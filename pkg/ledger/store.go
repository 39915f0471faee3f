package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	// DefaultLockTimeout bounds how long Update waits for another process
	// holding the ledger lock.
	DefaultLockTimeout = 10 * time.Second

	lockRetryDelay = 50 * time.Millisecond
	lockSuffix     = ".lock"
	defaultMode    = 0o644
)

// Store is the repository over a persisted ledger.
type Store interface {
	// Path returns the location of the ledger file.
	Path() string

	// Load reads the ledger. A missing ledger is empty, not an error.
	Load() (Ledger, error)

	// Update runs fn against the current ledger and persists the result
	// only when fn returns nil. The load, fn and save happen as one logical
	// transaction.
	Update(ctx context.Context, fn func(*Ledger) error) error
}

// FileStore keeps the ledger as a pretty-printed JSON file.
//
// Writes go to a temporary file in the ledger directory which is then
// renamed over the ledger, so a crash mid-write leaves the previous ledger
// intact. Update holds an advisory lock on "<path>.lock" for the whole
// read-modify-write unless locking is disabled.
type FileStore struct {
	path        string
	lock        bool
	lockTimeout time.Duration
	log         *zap.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLockTimeout enables locking with the given timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *FileStore) {
		s.lock = true
		s.lockTimeout = d
	}
}

// WithoutLock disables the advisory lock.
func WithoutLock() Option {
	return func(s *FileStore) {
		s.lock = false
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFileStore returns a store for the ledger at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:        path,
		lock:        true,
		lockTimeout: DefaultLockTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Dir returns the directory holding the ledger and its migration files.
func (s *FileStore) Dir() string {
	return filepath.Dir(s.path)
}

// Load reads and parses the ledger file.
func (s *FileStore) Load() (Ledger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("ledger not found, starting empty", zap.String("path", s.path))
		return Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	if l == nil {
		l = Ledger{}
	}

	s.log.Debug("ledger loaded", zap.String("path", s.path), zap.Int("records", len(l)))
	return l, nil
}

// Update locks the ledger, loads it, applies fn and saves the result.
// When fn returns an error nothing is written and the error is returned
// unchanged.
func (s *FileStore) Update(ctx context.Context, fn func(*Ledger) error) error {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	if s.lock {
		unlock, err := s.acquire(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}

	l, err := s.Load()
	if err != nil {
		return err
	}

	if err := fn(&l); err != nil {
		return err
	}

	return s.save(l)
}

func (s *FileStore) acquire(ctx context.Context) (func(), error) {
	fl := flock.New(s.path + lockSuffix)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waited %s for %s", ErrLocked, s.lockTimeout, fl.Path())
		}
		return nil, fmt.Errorf("locking ledger: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}

	s.log.Debug("ledger locked", zap.String("lock", fl.Path()))
	return func() {
		if err := fl.Unlock(); err != nil {
			s.log.Warn("releasing ledger lock", zap.String("lock", fl.Path()), zap.Error(err))
		}
	}, nil
}

// save writes l with 2-space indentation via a temp file and rename. An
// existing ledger keeps its permissions, and a symlinked ledger is replaced
// at the link target so the link survives.
func (s *FileStore) save(l Ledger) error {
	if l == nil {
		l = Ledger{}
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	data = append(data, '\n')

	target, mode, err := s.target()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("setting ledger permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}

	s.log.Debug("ledger saved", zap.String("path", s.path), zap.Int("records", len(l)))
	return nil
}

// target returns the file save should replace and the mode to give it.
func (s *FileStore) target() (string, fs.FileMode, error) {
	path, err := filepath.EvalSymlinks(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.path, defaultMode, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("resolving ledger path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading ledger permissions: %w", err)
	}
	return path, info.Mode().Perm(), nil
}
