package state

import (
	"context"
	"fmt"
	"path/filepath"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// NewBackend opens the KV named by backend under dataDir.
func NewBackend(ctx context.Context, backend, dataDir string) (KV, error) {
	switch backend {
	case BackendSQLite, "":
		kv, err := NewSQLite(filepath.Join(dataDir, "lessonplay.db"))
		if err != nil {
			return nil, err
		}
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = kv.Close()
			return nil, err
		}
		return kv, nil
	case BackendFile:
		return NewFileKV(filepath.Join(dataDir, "records"))
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
