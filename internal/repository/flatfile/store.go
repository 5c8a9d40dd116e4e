// Package flatfile implements the repository contracts over in-memory
// maps persisted to JSON files. The maps are the sole source of truth
// while the process runs; the files exist so a restart can rebuild
// them. Each collection file is an array of [key, value] pairs and is
// replaced with a write-temp-then-rename step, so a crash mid-write
// never leaves a half-written canonical file behind.
package flatfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lalith-99/whisperline/internal/models"
	"go.uber.org/zap"
)

// Collection file names. Backups are named <timestamp>-<file>.
const (
	usersFile    = "users.json"
	friendsFile  = "friends.json"
	chatsFile    = "chats.json"
	messagesFile = "messages.json"
	requestsFile = "pendingRequests.json"
	groupsFile   = "groups.json"
)

var collectionFiles = []string{
	usersFile, friendsFile, chatsFile, messagesFile, requestsFile, groupsFile,
}

// Store owns the six collections and their persistence. The inner
// RWMutex guards the maps themselves; every repository method takes it,
// and PersistAll snapshots each collection to bytes under RLock before
// doing any file I/O, so a concurrent mutation can never be observed
// half-serialized on disk.
type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	friends  map[string][]models.FriendEdge
	chats    map[string][]models.Conversation
	messages map[string][]models.Message
	requests map[string][]models.PendingRequest
	groups   map[string]models.Group

	dataDir   string
	backupDir string
	keep      int
	logger    *zap.Logger
}

// New creates the data and backup directories, then loads every
// collection. A collection whose canonical file fails to parse falls
// back to its most recent backup; if that fails too, it starts empty.
// A damaged file never aborts boot.
func New(dataDir string, keep int, logger *zap.Logger) (*Store, error) {
	backupDir := filepath.Join(dataDir, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directories: %w", err)
	}

	s := &Store{
		dataDir:   dataDir,
		backupDir: backupDir,
		keep:      keep,
		logger:    logger,
	}

	s.users = loadCollection[models.User](s, usersFile)
	s.friends = loadCollection[[]models.FriendEdge](s, friendsFile)
	s.chats = loadCollection[[]models.Conversation](s, chatsFile)
	s.messages = loadCollection[[]models.Message](s, messagesFile)
	s.requests = loadCollection[[]models.PendingRequest](s, requestsFile)
	s.groups = loadCollection[models.Group](s, groupsFile)

	return s, nil
}

// PersistAll flushes every collection: back up the existing canonical
// files, then serialize-and-rename each one. Mutations that land after
// the snapshot is taken simply ride the next persist.
func (s *Store) PersistAll() error {
	s.mu.RLock()
	snapshots := make(map[string][]byte, len(collectionFiles))
	var err error
	encode := func(file string, data []byte, encErr error) {
		if err == nil && encErr != nil {
			err = fmt.Errorf("encode %s: %w", file, encErr)
			return
		}
		snapshots[file] = data
	}
	d, e := encodePairs(s.users)
	encode(usersFile, d, e)
	d, e = encodePairs(s.friends)
	encode(friendsFile, d, e)
	d, e = encodePairs(s.chats)
	encode(chatsFile, d, e)
	d, e = encodePairs(s.messages)
	encode(messagesFile, d, e)
	d, e = encodePairs(s.requests)
	encode(requestsFile, d, e)
	d, e = encodePairs(s.groups)
	encode(groupsFile, d, e)
	s.mu.RUnlock()

	if err != nil {
		return err
	}

	s.backupExisting()

	for _, file := range collectionFiles {
		if werr := s.writeAtomic(file, snapshots[file]); werr != nil {
			return werr
		}
	}

	s.pruneBackups()
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames
// it over the canonical file.
func (s *Store) writeAtomic(file string, data []byte) error {
	tempPath := filepath.Join(s.dataDir, "temp-"+file)
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	if err := os.Rename(tempPath, filepath.Join(s.dataDir, file)); err != nil {
		return fmt.Errorf("rename %s: %w", file, err)
	}
	return nil
}

// backupTimestamp formats now as a fixed-width UTC timestamp with ':'
// and '.' replaced so it is filename-safe. Fixed width means
// lexicographic order of backup names is chronological order.
func backupTimestamp(now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
}

func (s *Store) backupExisting() {
	stamp := backupTimestamp(time.Now())
	for _, file := range collectionFiles {
		src := filepath.Join(s.dataDir, file)
		data, err := os.ReadFile(src)
		if err != nil {
			continue // nothing to back up yet
		}
		dst := filepath.Join(s.backupDir, stamp+"-"+file)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			s.logger.Warn("failed to write backup",
				zap.String("file", file),
				zap.Error(err),
			)
		}
	}
}

// pruneBackups keeps only the newest `keep` backups per logical file.
func (s *Store) pruneBackups() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		s.logger.Warn("failed to list backups", zap.Error(err))
		return
	}

	for _, file := range collectionFiles {
		var names []string
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), "-"+file) {
				names = append(names, entry.Name())
			}
		}
		if len(names) <= s.keep {
			continue
		}
		sort.Strings(names)
		for _, name := range names[:len(names)-s.keep] {
			if err := os.Remove(filepath.Join(s.backupDir, name)); err != nil {
				s.logger.Warn("failed to prune backup",
					zap.String("name", name),
					zap.Error(err),
				)
			}
		}
	}
}

// newestBackup returns the path of the most recent backup of file, or
// "" if none exists.
func (s *Store) newestBackup(file string) string {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "-"+file) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(s.backupDir, names[len(names)-1])
}

// loadCollection reads one collection, trying canonical file, then the
// newest backup, then giving up and returning an empty map.
func loadCollection[V any](s *Store, file string) map[string]V {
	path := filepath.Join(s.dataDir, file)

	data, err := os.ReadFile(path)
	if err == nil {
		m, derr := decodePairs[V](data)
		if derr == nil {
			s.logger.Info("loaded collection",
				zap.String("file", file),
				zap.Int("entries", len(m)),
			)
			return m
		}
		s.logger.Error("failed to parse collection, trying backup",
			zap.String("file", file),
			zap.Error(derr),
		)
	} else if !os.IsNotExist(err) {
		s.logger.Error("failed to read collection, trying backup",
			zap.String("file", file),
			zap.Error(err),
		)
	}

	if backup := s.newestBackup(file); backup != "" {
		data, err := os.ReadFile(backup)
		if err == nil {
			m, derr := decodePairs[V](data)
			if derr == nil {
				s.logger.Info("loaded collection from backup",
					zap.String("file", file),
					zap.String("backup", backup),
					zap.Int("entries", len(m)),
				)
				return m
			}
			s.logger.Error("failed to parse backup",
				zap.String("backup", backup),
				zap.Error(derr),
			)
		}
	}

	return make(map[string]V)
}

// encodePairs serializes a collection as a JSON array of [key, value]
// pairs, keys sorted so output is stable.
func encodePairs[V any](m map[string]V) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]json.RawMessage, 0, len(m))
	for _, k := range keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]json.RawMessage{key, value})
	}
	return json.Marshal(pairs)
}

func decodePairs[V any](data []byte) (map[string]V, error) {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	m := make(map[string]V, len(pairs))
	for _, pair := range pairs {
		var key string
		if err := json.Unmarshal(pair[0], &key); err != nil {
			return nil, err
		}
		var value V
		if err := json.Unmarshal(pair[1], &value); err != nil {
			return nil, err
		}
		m[key] = value
	}
	return m, nil
}
