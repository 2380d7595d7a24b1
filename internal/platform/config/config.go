// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Auth modes.
const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

// Media backends.
const (
	MediaGCS        = "gcs"
	MediaCloudinary = "cloudinary"
	MediaMemory     = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Port        string
	CORSOrigins []string

	StoreBackend   string
	MongoURI       string
	MongoDatabase  string
	MongoTimeout   time.Duration
	FirebaseConfig FirebaseConfig

	AuthMode  string
	JWTSecret string
	JWTIssuer string

	MediaBackend  string
	MediaBucket   string
	CloudinaryURL string
	// MediaBaseURL prefixes the URLs of the in-memory media backend.
	MediaBaseURL  string

	RedisURL        string
	ProfileCacheTTL time.Duration

	ReconcileInterval time.Duration
}

// FirebaseConfig holds Firebase project settings.
type FirebaseConfig struct {
	ProjectID                    string
	GoogleApplicationCredentials string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}

	cfg := &Config{
		Port:          orDefault(getenv("PORT"), "8080"),
		CORSOrigins:   splitList(orDefault(getenv("CORS_ORIGINS"), "*")),
		StoreBackend:  strings.ToLower(orDefault(getenv("STORE_BACKEND"), StoreMongo)),
		MongoURI:      orDefault(getenv("MONGODB_URI"), "mongodb://127.0.0.1:27017"),
		MongoDatabase: orDefault(getenv("MONGODB_DATABASE"), "harvest_bridge"),
		MongoTimeout:  duration("MONGODB_TIMEOUT", 10*time.Second),
		FirebaseConfig: FirebaseConfig{
			ProjectID:                    firstNonEmpty(getenv("FIREBASE_PROJECT_ID"), getenv("GOOGLE_CLOUD_PROJECT")),
			GoogleApplicationCredentials: getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		AuthMode:          strings.ToLower(orDefault(getenv("AUTH_MODE"), AuthFirebase)),
		JWTSecret:         getenv("JWT_SECRET"),
		JWTIssuer:         getenv("JWT_ISSUER"),
		MediaBackend:      strings.ToLower(orDefault(getenv("MEDIA_BACKEND"), MediaMemory)),
		MediaBucket:       getenv("MEDIA_BUCKET"),
		CloudinaryURL:     getenv("CLOUDINARY_URL"),
		MediaBaseURL:      getenv("MEDIA_BASE_URL"),
		RedisURL:          getenv("REDIS_URL"),
		ProfileCacheTTL:   duration("PROFILE_CACHE_TTL", 5*time.Minute),
		ReconcileInterval: duration("RECONCILE_INTERVAL", 0),
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("PORT: invalid port %q", cfg.Port))
	}
	switch cfg.StoreBackend {
	case StoreMongo, StoreMemory:
	case StoreFirestore:
		if cfg.FirebaseConfig.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend))
	}
	switch cfg.AuthMode {
	case AuthFirebase:
		if cfg.FirebaseConfig.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for firebase auth"))
		}
	case AuthJWT:
		if len(cfg.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE: unknown mode %q", cfg.AuthMode))
	}
	switch cfg.MediaBackend {
	case MediaMemory:
	case MediaGCS:
		if cfg.MediaBucket == "" {
			errs = append(errs, errors.New("MEDIA_BUCKET is required for the gcs media backend"))
		}
	case MediaCloudinary:
		if cfg.CloudinaryURL == "" {
			errs = append(errs, errors.New("CLOUDINARY_URL is required for the cloudinary media backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MEDIA_BACKEND: unknown backend %q", cfg.MediaBackend))
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = "http://localhost:" + cfg.Port + "/media/"
	}
	if cfg.ReconcileInterval < 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NeedsFirebase reports whether any configured component uses the Firebase Admin SDK.
func (c *Config) NeedsFirebase() bool {
	return c.AuthMode == AuthFirebase || c.StoreBackend == StoreFirestore || c.MediaBackend == MediaGCS
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
