package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	fbstorage "firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// Config holds Firebase configuration. Only the clients a deployment needs
// are created: Auth always, Firestore and Storage when requested.
type Config struct {
	ProjectID                    string
	GoogleApplicationCredentials string // Path to service account JSON (optional)
	StorageBucket                string // default bucket for media, e.g. "demo.appspot.com"
	WithFirestore                bool
	WithStorage                  bool
}

// Clients holds initialized Firebase clients. Unrequested clients are nil.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
	Storage   *fbstorage.Client
}

// InitializeClients sets up Firebase and returns clients directly.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	var opts []option.ClientOption
	if cfg.GoogleApplicationCredentials != "" {
		creds, err := os.ReadFile(cfg.GoogleApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	clients := &Clients{}
	if clients.Auth, err = fbApp.Auth(ctx); err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	if cfg.WithFirestore {
		if clients.Firestore, err = fbApp.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
	}
	if cfg.WithStorage {
		if clients.Storage, err = fbApp.Storage(ctx); err != nil {
			_ = clients.Close()
			return nil, fmt.Errorf("firebase storage: %w", err)
		}
	}
	return clients, nil
}

// Close closes the Firestore client. It is safe on a nil *Clients, which is
// what deployments without Firebase hold.
func (c *Clients) Close() error {
	if c != nil && c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
