package broadcast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileChannel writes each signal to a file named after its key inside dir.
// Every process watching dir sees the write.
type FileChannel struct {
	dir  string
	keys Keys

	mu       sync.Mutex
	watchers []*fsnotify.Watcher
	closed   bool
}

// NewFileChannel returns a FileChannel rooted at dir, creating it if needed.
func NewFileChannel(dir string, keys Keys) (*FileChannel, error) {
	if dir == "" {
		return nil, errors.New("file channel dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileChannel{dir: dir, keys: keys.normalized()}, nil
}

// Publish replaces the key file with sig via rename, so watchers never read
// a partial write.
func (c *FileChannel) Publish(_ context.Context, sig Signal) error {
	key, ok := c.keys.forKind(sig.Kind)
	if !ok {
		return errors.New("unknown signal kind")
	}
	payload, err := encodeSignal(sig)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".signal-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(c.dir, key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish %s: %w", sig.Kind, err)
	}
	return nil
}

// Subscribe watches dir until ctx ends.
func (c *FileChannel) Subscribe(ctx context.Context) (<-chan Signal, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	c.mu.Lock()
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	out := make(chan Signal, subscriberBuffer)
	go c.processEvents(ctx, watcher, out)
	return out, nil
}

func (c *FileChannel) processEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- Signal) {
	defer close(out)
	defer watcher.Close()

	last := make(map[Kind]Signal, 2)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			kind, ok := c.keys.kindFor(filepath.Base(event.Name))
			if !ok {
				continue
			}
			data, err := os.ReadFile(event.Name)
			if err != nil {
				continue
			}
			sig, ok := decodeSignal(data, kind)
			if !ok || sig == last[kind] {
				continue
			}
			last[kind] = sig
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops every watcher.
func (c *FileChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}
