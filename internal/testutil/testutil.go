package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Baaaki/yamdb/internal/database"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestDatabase holds test database connection (in-memory SQLite)
type TestDatabase struct {
	DB  *gorm.DB
	DSN string
}

// TestRedis holds test Redis mock (miniredis)
type TestRedis struct {
	Server *miniredis.Miniredis
	URL    string
}

// SetupTestDatabase opens a private in-memory SQLite database with the full schema.
// Each call gets its own named database so suites never see each other's rows.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &TestDatabase{
		DB:  db,
		DSN: dsn,
	}
}

// Teardown cleans up the test database (closes connection)
func (td *TestDatabase) Teardown(t *testing.T) {
	sqlDB, err := td.DB.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// SetupTestRedis creates an in-memory Redis mock (miniredis)
func SetupTestRedis(t *testing.T) *TestRedis {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	return &TestRedis{
		Server: server,
		URL:    fmt.Sprintf("redis://%s", server.Addr()),
	}
}

// Teardown cleans up the test Redis mock
func (tr *TestRedis) Teardown(t *testing.T) {
	tr.Server.Close()
}

// CleanDatabase deletes all rows, children first (SQLite has no TRUNCATE).
func CleanDatabase(t *testing.T, db *gorm.DB) {
	tables := []string{"comments", "reviews", "title_genres", "titles", "genres", "categories", "accounts"}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			t.Logf("Warning: Failed to clean table %s: %v", table, err)
		}
	}
}

// Mail is one message captured by RecordingNotifier.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// RecordingNotifier keeps sent mail in memory. Set Err to make Send fail.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

func (n *RecordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *RecordingNotifier) Sent() []Mail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Mail(nil), n.sent...)
}

// Last returns the most recent mail or fails the test when nothing was sent.
func (n *RecordingNotifier) Last(t *testing.T) Mail {
	t.Helper()
	sent := n.Sent()
	if len(sent) == 0 {
		t.Fatalf("Expected at least one mail to be sent")
	}
	return sent[len(sent)-1]
}

func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
	n.Err = nil
}
