package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
)

const backendName = "file"

// record is the on-disk form of one state value. Origin identifies the Store
// that wrote it and Write is unique per Set, so watchers can tell their own
// writes apart from remote ones that happen to carry the same value.
type record struct {
	Origin string `json:"origin"`
	Write  string `json:"write"`
	Value  string `json:"value"`
}

// Store implements domain.SyncStore on a directory tree. Writes are atomic
// (temp file plus rename). A Store ignores notifications for records it
// wrote itself.
type Store struct {
	root    string
	origin  string
	metrics *metrics.StoreMetrics
}

var _ domain.SyncStore = (*Store)(nil)

// New creates the root directory if needed. m may be nil.
func New(root string, m *metrics.StoreMetrics) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{root: root, origin: uuid.NewString(), metrics: m}, nil
}

func (s *Store) userDir(userID uuid.UUID) string {
	return filepath.Join(s.root, userID.String())
}

func (s *Store) path(userID uuid.UUID, key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid state key %q", key)
	}
	return filepath.Join(s.userDir(userID), key), nil
}

func validKey(key string) bool {
	return key != "" && !strings.HasPrefix(key, ".") && !strings.ContainsAny(key, `/\`)
}

func (s *Store) Get(_ context.Context, userID uuid.UUID, key string) (string, bool, error) {
	p, err := s.path(userID, key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		// Handed back as-is; callers treat unparseable values as corrupt.
		return string(data), true, nil
	}
	return rec.Value, true, nil
}

func decodeRecord(data []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, err
	}
	if rec.Origin == "" || rec.Write == "" {
		return record{}, errors.New("state record without origin")
	}
	return rec, nil
}

func (s *Store) Set(_ context.Context, userID uuid.UUID, key, value string) error {
	p, err := s.path(userID, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}

	data, err := json.Marshal(record{Origin: s.origin, Write: uuid.NewString(), Value: value})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Subscribe watches the user's directory until unsubscribe is called or ctx
// is done.
func (s *Store) Subscribe(ctx context.Context, userID uuid.UUID, handler domain.ChangeHandler) (func(), error) {
	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create user dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() { _ = watcher.Close() }()
		// key -> write ID last seen, so the Create and Write events of a
		// single replace are delivered once.
		seen := make(map[string]string)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				s.deliver(userID, event.Name, seen, handler)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("State directory watcher error", "user_id", userID, "error", err)
			case <-subCtx.Done():
				return
			}
		}
	}()

	return cancel, nil
}

// deliver reads the changed file and hands its value to handler unless it is
// a temp file, a record written by this Store, or a second event for a write
// already seen.
func (s *Store) deliver(userID uuid.UUID, path string, seen map[string]string, handler domain.ChangeHandler) {
	key := filepath.Base(path)
	if !validKey(key) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Ignoring unreadable state file", "user_id", userID, "key", key, "error", err)
			s.metrics.Dropped(backendName)
		}
		return
	}
	rec, err := decodeRecord(data)
	if err != nil {
		slog.Warn("Ignoring malformed state file", "user_id", userID, "key", key, "error", err)
		s.metrics.Dropped(backendName)
		return
	}

	if rec.Write == seen[key] {
		return
	}
	seen[key] = rec.Write
	if rec.Origin == s.origin {
		return
	}

	s.metrics.Received(backendName)
	handler(key, rec.Value)
}
