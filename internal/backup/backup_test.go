package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fernhill/pennyjar/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func setupManager(t *testing.T, client s3Client) (*Manager, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "pennyjar.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := &Manager{
		cfg: Config{
			Bucket:     "pennyjar-backups",
			Passphrase: "hunter2",
			Interval:   time.Hour,
			DBPath:     dbPath,
		},
		db:     db,
		client: client,
		logger: slog.Default(),
	}
	return m, dbPath
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	mock := newMockS3()
	m, _ := setupManager(t, mock)

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if !strings.HasPrefix(key, "snapshots/pennyjar-") {
		t.Errorf("key = %q, want snapshots/pennyjar- prefix", key)
	}

	data, ok := mock.objects[key]
	if !ok {
		t.Fatal("expected uploaded object")
	}
	if bytes.Contains(data, []byte("SQLite format 3")) {
		t.Error("uploaded snapshot is not encrypted")
	}

	plain, err := Decrypt(data, "hunter2")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a SQLite database")
	}

	st := m.Status()
	if st.LastBackup == nil || st.LastKey != key {
		t.Errorf("status not updated: %+v", st)
	}
}

func TestRunNowRecordsError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("bucket unreachable")
	m, _ := setupManager(t, mock)

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Status().LastError == "" {
		t.Error("expected LastError to be set")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	mock := newMockS3()
	m, dbPath := setupManager(t, mock)

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	if err := m.Restore(context.Background(), key); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen restored database: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM families").Scan(&n); err != nil {
		t.Errorf("query restored database: %v", err)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	mock := newMockS3()
	m, _ := setupManager(t, mock)

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	m.cfg.Passphrase = "not-it"
	if err := m.Restore(context.Background(), key); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}
