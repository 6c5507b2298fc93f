// factory.go maps backend names (local, s3, azure, gcs) to constructors.
// Backends self-register from their package init, keyed by the name used in
// the storage.default_backend config setting.
package storage

import (
	"fmt"

	"github.com/familyvault/familyvault/internal/config"
)

// FactoryFunc builds a backend from the loaded configuration.
type FactoryFunc func(*config.Config) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register adds a backend constructor under name. Registering the same name
// twice panics, since it means two packages claim the same config value.
func Register(name string, factory FactoryFunc) {
	if _, dup := factories[name]; dup {
		panic("storage: backend registered twice: " + name)
	}
	factories[name] = factory
}

// NewStorage builds the backend selected by cfg.Storage.DefaultBackend.
func NewStorage(cfg *config.Config) (Storage, error) {
	factory, ok := factories[cfg.Storage.DefaultBackend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %q (must be 'local', 'azure', 's3', or 'gcs')", cfg.Storage.DefaultBackend)
	}
	return factory(cfg)
}
