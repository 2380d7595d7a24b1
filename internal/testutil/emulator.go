// Package testutil gates integration tests on local backing services.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/harvestbridge/harvest-bridge/internal/platform/mongodb"
)

const (
	FirestoreEmulatorHost = "127.0.0.1:7130"
	ProjectID             = "demo-test-project"
	defaultMongoURI       = "mongodb://127.0.0.1:27017"
)

func reachable(host string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SkipIfFirestoreUnavailable skips the test if the Firestore emulator is not running.
func SkipIfFirestoreUnavailable(t *testing.T) {
	t.Helper()
	if !reachable(FirestoreEmulatorHost) {
		t.Skip("Firestore emulator not available")
	}
}

// Firestore returns a client bound to the emulator with an empty database.
// The client is closed and the database cleared when the test ends.
func Firestore(t *testing.T) *firestore.Client {
	t.Helper()
	SkipIfFirestoreUnavailable(t)
	t.Setenv("FIRESTORE_EMULATOR_HOST", FirestoreEmulatorHost)
	ClearFirestore(t)

	client, err := firestore.NewClient(context.Background(), ProjectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() {
		ClearFirestore(t)
		_ = client.Close()
	})
	return client
}

// ClearFirestore removes all documents from the Firestore emulator.
func ClearFirestore(t *testing.T) {
	t.Helper()
	url := fmt.Sprintf("http://%s/emulator/v1/projects/%s/databases/(default)/documents",
		FirestoreEmulatorHost, ProjectID)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to clear Firestore: %v", err)
	}
	_ = resp.Body.Close()
}

// MongoURI returns MONGODB_TEST_URI or the local default.
func MongoURI() string {
	if uri := os.Getenv("MONGODB_TEST_URI"); uri != "" {
		return uri
	}
	return defaultMongoURI
}

// Mongo connects to the test server and returns a fresh database that is
// dropped when the test ends. The test is skipped when MongoDB is unreachable.
func Mongo(t *testing.T) *mongo.Database {
	t.Helper()
	uri := MongoURI()
	host := strings.TrimPrefix(uri, "mongodb://")
	host, _, _ = strings.Cut(host, "/")
	if _, after, ok := strings.Cut(host, "@"); ok {
		host = after
	}
	if !reachable(host) {
		t.Skip("MongoDB not available")
	}

	ctx := context.Background()
	name := "hb_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: uri, Database: name, Timeout: 2 * time.Second})
	if err != nil {
		t.Skipf("MongoDB not usable: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}
