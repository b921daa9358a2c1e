package mapping

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher reloads the in-memory table when the snapshot file is
// rewritten out of process, for example by an operator dropping in a
// curated snapshot. The watcher observes the parent directory because
// atomic replace-by-rename swaps the inode out from under a file watch.
func (c *Cache) StartWatcher() error {
	if c.path == "" {
		return fmt.Errorf("no snapshot path configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch snapshot directory: %w", err)
	}

	c.watcher = watcher
	c.watchStop = make(chan struct{})

	go c.watchLoop()
	c.logger.Info("mapping snapshot watcher started", "path", c.path)
	return nil
}

func (c *Cache) watchLoop() {
	target := filepath.Clean(c.path)
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := c.Load(); err != nil {
				c.logger.Warn("snapshot reload failed", "path", c.path, "error", err.Error())
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("snapshot watcher error", "error", err.Error())
		case <-c.watchStop:
			return
		}
	}
}

// StopWatcher stops the snapshot watcher if one is running.
func (c *Cache) StopWatcher() {
	if c.watcher == nil {
		return
	}
	c.watchOnce.Do(func() {
		close(c.watchStop)
		c.watcher.Close()
	})
}
