package consul

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/mountfs/backend"
)

// ConsulBackend provides a simple object storage backend using HashiCorp Consul KV store.
//
// Architecture:
// - Files are stored directly in Consul KV with their key as the path
// - Directories are empty marker keys ending in "/"
// - The modification time of a file is kept in the flags of its KV entry
// - Prefix is configurable (default: root of the KV store)
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for configuration files, small assets, and metadata storage
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	// Configuration
	config *ConsulBackendConfig
	prefix string
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string `mapstructure:"address"`

	// Token for Consul ACL authentication (optional)
	Token string `mapstructure:"token"`

	// Datacenter to use (optional)
	Datacenter string `mapstructure:"datacenter"`

	// Namespace for Consul Enterprise (optional)
	Namespace string `mapstructure:"namespace"`

	// Prefix for all keys in Consul KV (optional)
	// This allows mounting the backend at a specific path
	Prefix string `mapstructure:"prefix"`
}

var _ backend.ObjectStorageBackend = (*ConsulBackend)(nil)

// NewConsulBackend creates a new Consul-backed object storage backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(config.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
		prefix: prefix,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	leader, err := cb.client.Status().LeaderWithQueryOptions((&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach consul at '%s': %w", cb.config.Address, err)
	}
	if leader == "" {
		return fmt.Errorf("consul at '%s' has no leader", cb.config.Address)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
		},
		// Consul KV has a default limit of 512KB per value
		MaxObjectSize: 500 * 1024, // 500 KB
	}
}

// buildKey constructs the full Consul KV key from the object key
func (cb *ConsulBackend) buildKey(key string) string {
	return cb.prefix + key
}

// buildDirKey constructs the marker key of a directory; for the root it is
// the bare prefix used for listing.
func (cb *ConsulBackend) buildDirKey(key string) string {
	if key == "" {
		return cb.prefix
	}
	return cb.prefix + key + "/"
}
