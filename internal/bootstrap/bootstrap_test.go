package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/concepto-video-api/internal/config"
	"github.com/maauso/concepto-video-api/internal/generator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies_LocalStorage(t *testing.T) {
	cfg := &config.Config{
		Port:          8080,
		TempDir:       t.TempDir(),
		PollInterval:  time.Second,
		MaxMediaBytes: 1 << 20,
		KlingAPIKey:   "kling-key",
	}

	deps, err := NewDependencies(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Service)
	assert.NotEmpty(t, deps.ArtifactsDir)

	// Only Kling has credentials, so a Runway model has no adapter.
	_, err = deps.Service.Generate(context.Background(), generator.Request{
		Model:     "runway-gen4_turbo",
		EpisodeID: "ep-1",
		ImageURL:  "https://cdn.example.com/a.png",
	})
	assert.ErrorIs(t, err, generator.ErrVendorUnavailable)
}

func TestInitRegistry_RegistersConfiguredVendors(t *testing.T) {
	cfg := &config.Config{
		PollInterval:  time.Second,
		MaxMediaBytes: 1 << 20,
		RunwayAPIKey:  "rw",
		GeminiKey:     "gemini",
		OpenAIAPIKey:  "sk",
	}
	st, _, err := initStorage(&config.Config{TempDir: t.TempDir()}, discardLogger())
	require.NoError(t, err)

	registry, err := initRegistry(cfg, nil, st, discardLogger())
	require.NoError(t, err)

	for _, v := range []generator.Vendor{generator.VendorRunway, generator.VendorVeo, generator.VendorSora} {
		g, err := registry.Get(v)
		require.NoError(t, err, v)
		assert.Equal(t, v, g.Vendor())
		assert.Equal(t, time.Second, g.PollPolicy().Interval)
	}
	_, err = registry.Get(generator.VendorKling)
	assert.ErrorIs(t, err, generator.ErrVendorUnavailable)
}
