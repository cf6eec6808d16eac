package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/garyellow/school-records-go/internal/logger"
)

// Cleaner deletes preview files. A file that cannot be removed (typically
// because a viewer still holds it open) is kept and retried by Flush, which
// the process calls on shutdown. Safe for concurrent use.
type Cleaner struct {
	mu       sync.Mutex
	deferred map[string]struct{}
	remove   func(string) error
	logger   *logger.Logger
}

// NewCleaner creates a Cleaner that uses os.Remove.
func NewCleaner(log *logger.Logger) *Cleaner {
	if log == nil {
		log = logger.Discard()
	}
	return &Cleaner{
		deferred: make(map[string]struct{}),
		remove:   os.Remove,
		logger:   log.WithModule("preview_cleaner"),
	}
}

// Remove deletes path now, or defers it when deletion fails. Missing files
// are not an error.
func (c *Cleaner) Remove(path string) {
	if path == "" {
		return
	}
	err := c.remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}

	c.logger.WithError(err).Warn("temporary file busy, deleting at exit", slog.String("path", path))
	c.mu.Lock()
	c.deferred[path] = struct{}{}
	c.mu.Unlock()
}

// Pending returns how many deletions are deferred.
func (c *Cleaner) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deferred)
}

// Flush retries every deferred deletion and reports the ones that still fail.
func (c *Cleaner) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for path := range c.deferred {
		err := c.remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			delete(c.deferred, path)
			continue
		}
		errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
	}
	return errors.Join(errs...)
}
