package config

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current rule set and swaps it atomically when the
// backing file changes or a reload is requested.
type Store struct {
	mu    sync.RWMutex
	path  string
	rules *Rules
}

func NewStore(path string) (*Store, error) {
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, rules: rules}, nil
}

func (s *Store) Rules() *Rules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

func (s *Store) Reload() (*Rules, error) {
	rules, err := LoadRules(s.path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return rules, nil
}

// Watch reloads the rules whenever the file is written. Editors often
// replace the file, so the parent directory is watched rather than the
// file itself.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if _, err := s.Reload(); err != nil {
					log.Printf("Rules reload failed: %v", err)
					continue
				}
				log.Printf("Rules reloaded from %s", s.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Rules watcher error: %v", err)
			}
		}
	}()
	return nil
}
