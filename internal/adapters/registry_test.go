package adapters

import (
	"testing"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/fake"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeConnector(platform domain.Platform, tokens *[]string) ports.Connector {
	catalog := fake.NewCatalog(platform)
	return func(token string) (ports.PlatformClient, error) {
		*tokens = append(*tokens, token)
		return catalog, nil
	}
}

func TestProviderRegistry_RegisterAndConnect(t *testing.T) {
	var tokens []string
	registry := NewProviderRegistry()
	registry.Register(domain.PlatformSpotify, fakeConnector(domain.PlatformSpotify, &tokens))
	registry.Register(domain.PlatformYouTube, fakeConnector(domain.PlatformYouTube, &tokens))

	c, err := registry.Connect(domain.PlatformSpotify, "sp-token")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformSpotify, c.Platform())

	c, err = registry.Connect(domain.PlatformYouTube, "yt-token")
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformYouTube, c.Platform())

	assert.Equal(t, []string{"sp-token", "yt-token"}, tokens)
}

func TestProviderRegistry_ConnectUnknown(t *testing.T) {
	registry := NewProviderRegistry()

	_, err := registry.Connect("deezer", "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
	assert.Contains(t, err.Error(), "deezer")
}

func TestProviderRegistry_ConnectEmptyToken(t *testing.T) {
	var tokens []string
	registry := NewProviderRegistry()
	registry.Register(domain.PlatformSpotify, fakeConnector(domain.PlatformSpotify, &tokens))

	_, err := registry.Connect(domain.PlatformSpotify, "  ")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Empty(t, tokens)
}

func TestProviderRegistry_Available(t *testing.T) {
	var tokens []string
	registry := NewProviderRegistry()
	registry.Register(domain.PlatformYouTube, fakeConnector(domain.PlatformYouTube, &tokens))
	registry.Register(domain.PlatformSpotify, fakeConnector(domain.PlatformSpotify, &tokens))

	assert.Equal(t, []domain.Platform{domain.PlatformSpotify, domain.PlatformYouTube}, registry.Available())
}

func TestProviderRegistry_OverwriteExisting(t *testing.T) {
	var tokens []string
	registry := NewProviderRegistry()
	registry.Register(domain.PlatformSpotify, fakeConnector(domain.PlatformSpotify, &tokens))
	registry.Register(domain.PlatformSpotify, fakeConnector(domain.PlatformSpotify, &tokens)) // re-register

	assert.Len(t, registry.Available(), 1)
}
