package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	testingpkg "github.com/aristath/paperledger/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, size int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUploadBackup(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	_, err := db.Conn().Exec(`INSERT INTO accounts (username, cash, created_at) VALUES ('alice', '100', 1)`)
	require.NoError(t, err)

	store := newMemoryStore()
	dataDir := t.TempDir()
	svc := NewBackupService(store, dataDir, zerolog.Nop(), db)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

	name, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "paperledger-backup-2026-03-14-150926.tar.gz", name)
	require.Contains(t, store.objects, name)

	files := readArchive(t, store.objects[name])
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, metadataFilename)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFilename], &metadata))
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "ledger", metadata.Databases[0].Name)
	assert.Equal(t, int64(len(files["ledger.db"])), metadata.Databases[0].SizeBytes)
	assert.Equal(t, fmt.Sprintf("sha256:%x", sha256.Sum256(files["ledger.db"])), metadata.Databases[0].Checksum)

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory must be removed")
}

func TestCreateAndUploadBackup_UploadFailure(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unreachable")

	dataDir := t.TempDir()
	svc := NewBackupService(store, dataDir, zerolog.Nop(), db)

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateAndUploadBackup_InsufficientDiskSpace(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	store := newMemoryStore()
	dataDir := t.TempDir()

	svc := NewBackupService(store, dataDir, zerolog.Nop(), db)
	svc.diskUsage = func(path string) (*disk.UsageStat, error) {
		assert.Equal(t, dataDir, path)
		return &disk.UsageStat{Path: path, Free: 1}, nil
	}

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.ErrorIs(t, err, ErrInsufficientDiskSpace)
	assert.Empty(t, store.keys())

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is staged when space is short")
}

func TestCreateAndUploadBackup_DiskUsageError(t *testing.T) {
	db := testingpkg.NewTestDB(t)
	store := newMemoryStore()

	svc := NewBackupService(store, t.TempDir(), zerolog.Nop(), db)
	svc.diskUsage = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statfs failed")
	assert.Empty(t, store.keys())
}

func TestListBackups(t *testing.T) {
	store := newMemoryStore()
	store.objects["paperledger-backup-2026-01-01-000000.tar.gz"] = []byte("a")
	store.objects["paperledger-backup-2026-01-03-000000.tar.gz"] = []byte("bb")
	store.objects["paperledger-backup-garbage.tar.gz"] = []byte("c")
	store.objects["unrelated.txt"] = []byte("d")

	svc := NewBackupService(store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)

	assert.Equal(t, "paperledger-backup-2026-01-03-000000.tar.gz", backups[0].Filename)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(72), backups[1].AgeHours)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	for day := 1; day <= 6; day++ {
		store.objects[fmt.Sprintf("paperledger-backup-2026-01-%02d-000000.tar.gz", day)] = []byte("x")
	}

	svc := NewBackupService(store, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) }

	// Cutoff is Jan 5: of the three beyond the newest three, only Jan 1-3 qualify
	deleted, err := svc.RotateOldBackups(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, []string{
		"paperledger-backup-2026-01-04-000000.tar.gz",
		"paperledger-backup-2026-01-05-000000.tar.gz",
		"paperledger-backup-2026-01-06-000000.tar.gz",
	}, store.keys())
}

func TestRotateOldBackups_KeepsMinimum(t *testing.T) {
	store := newMemoryStore()
	store.objects["paperledger-backup-2020-01-01-000000.tar.gz"] = []byte("x")
	store.objects["paperledger-backup-2020-01-02-000000.tar.gz"] = []byte("x")

	svc := NewBackupService(store, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.keys(), 2)
}

func TestRotateOldBackups_ZeroRetentionKeepsAll(t *testing.T) {
	store := newMemoryStore()
	for day := 1; day <= 5; day++ {
		store.objects[fmt.Sprintf("paperledger-backup-2020-01-%02d-000000.tar.gz", day)] = []byte("x")
	}

	svc := NewBackupService(store, t.TempDir(), zerolog.Nop())

	deleted, err := svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.keys(), 5)
}
