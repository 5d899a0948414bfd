package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAPERDESK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "http://localhost:8081", cfg.UsersServiceURL)
	assert.Equal(t, "http://localhost:8082", cfg.MarketServiceURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Backend.AcceptRefreshDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Backend.RejectRefreshDelay)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv("PAPERDESK_DATA_DIR", t.TempDir())
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)

	t.Setenv("TRACING_SAMPLE_RATIO", "1.5")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACING_SAMPLE_RATIO")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAPERDESK_DATA_DIR", t.TempDir())
	t.Setenv("PAPERDESK_PORT", "9000")
	t.Setenv("MARKET_SERVICE_URL", "http://market.internal:8082/")
	t.Setenv("ACCEPT_REFRESH_DELAY", "250ms")
	t.Setenv("REJECT_REFRESH_DELAY", "100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:4200, https://desk.example.com")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "http://market.internal:8082", cfg.MarketServiceURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Backend.AcceptRefreshDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Backend.RejectRefreshDelay)
	assert.Equal(t, []string{"http://localhost:4200", "https://desk.example.com"}, cfg.CORSOrigins)
}

func TestLoad_RejectsRelativeBackendURL(t *testing.T) {
	t.Setenv("PAPERDESK_DATA_DIR", t.TempDir())
	t.Setenv("USERS_SERVICE_URL", "localhost")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USERS_SERVICE_URL")
}

func TestGetEnvAsDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_DELAY", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("SOME_DELAY", time.Second))
}

func TestLoadCatalogue_Embedded(t *testing.T) {
	cat, err := LoadCatalogue("")
	require.NoError(t, err)

	codes := make([]string, 0, len(cat.Markets))
	for _, m := range cat.Markets {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []string{"CO", "EC", "PE", "VE", "US"}, codes)

	inst, market, ok := cat.Lookup(" ec ")
	require.True(t, ok)
	assert.Equal(t, "Ecopetrol", inst.Name)
	assert.Equal(t, "CO", market)
	assert.Equal(t, "COP", inst.Currency)

	pronaca, _, ok := cat.Lookup("PRONACA")
	require.True(t, ok)
	assert.False(t, pronaca.Charted)

	us, ok := cat.Market("us")
	require.True(t, ok)
	assert.True(t, us.Test)

	featured := cat.Featured()
	require.Len(t, featured, 3)
	assert.Equal(t, "EC", featured[0].Symbol)
	assert.Contains(t, cat.Symbols(), "AAPL")
}

func TestParseCatalogue_RejectsDuplicates(t *testing.T) {
	_, err := ParseCatalogue([]byte(`
markets:
  - code: co
    instruments:
      - {symbol: ec, name: Ecopetrol}
  - code: us
    instruments:
      - {symbol: EC, name: Duplicate}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EC")
}

func TestLoadCatalogue_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
markets:
  - code: co
    currency: COP
    instruments:
      - {symbol: " isa ", name: ISA}
`), 0o644))

	cat, err := LoadCatalogue(path)
	require.NoError(t, err)
	require.Len(t, cat.Markets, 1)
	assert.Equal(t, "CO", cat.Markets[0].Code)
	assert.Equal(t, "ISA", cat.Markets[0].Instruments[0].Symbol)
	assert.Equal(t, "COP", cat.Markets[0].Instruments[0].Currency)
}

func TestLoadCatalogue_MissingFile(t *testing.T) {
	_, err := LoadCatalogue(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
