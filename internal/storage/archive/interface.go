// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/sigfuse/internal/core"
)

// Storage is a flat blob store addressed by slash-separated keys.
// Read returns an error matching core.ErrNotFound for missing keys.
type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Backend string   `mapstructure:"backend"` // local, s3 or memory
	Path    string   `mapstructure:"path"`
	S3      S3Config `mapstructure:"s3"`
}

// Open builds the configured backend
func Open(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		if cfg.Path == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive: path is required"))
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("archive: unknown backend %q", cfg.Backend))
	}
}

// cleanKey normalizes a key and rejects ones escaping the store root
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("archive: invalid key %q", key)
	}
	return k, nil
}

func notFound(key string) error {
	return core.WrapError(core.ErrNotFound, fmt.Errorf("archive: %s", key))
}
