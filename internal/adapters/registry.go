package adapters

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// ProviderRegistry maps platforms to the connectors that build their clients.
// It is safe for concurrent use.
type ProviderRegistry struct {
	mu         sync.RWMutex
	connectors map[domain.Platform]ports.Connector
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		connectors: make(map[domain.Platform]ports.Connector),
	}
}

// Register adds a connector for platform, replacing any previous one.
func (r *ProviderRegistry) Register(platform domain.Platform, connector ports.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[platform] = connector
}

// Connect returns a client for platform bound to token.
func (r *ProviderRegistry) Connect(platform domain.Platform, token string) (ports.PlatformClient, error) {
	r.mu.RLock()
	connector, ok := r.connectors[platform]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, platform)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token for %s", domain.ErrNotAuthenticated, platform)
	}
	return connector(token)
}

// Available returns the registered platforms in name order.
func (r *ProviderRegistry) Available() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]domain.Platform, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
