package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "firefly:\n  url: https://ff.example\n  token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://ff.example", cfg.Firefly.URL)
	assert.Equal(t, 10*time.Second, cfg.Firefly.Timeout)
	assert.False(t, cfg.Firefly.VerifyCertificates)
	assert.Equal(t, "60s", cfg.Interval)
	assert.Equal(t, "month", cfg.Range.Kind)
	assert.Equal(t, 1, cfg.Range.MonthStart)
	assert.True(t, cfg.Return.Accounts)
	assert.True(t, cfg.Return.Categories)
	assert.True(t, cfg.Return.Bills)
	assert.False(t, cfg.Return.Budgets)
	assert.False(t, cfg.Return.PiggyBanks)
	assert.Equal(t, []string{"asset"}, cfg.Return.AccountTypes)
	assert.Equal(t, "FireflyIII", cfg.Instance.Name)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("FIREFLYIII_FIREFLY_TOKEN", "from-env")
	t.Setenv("FIREFLYIII_RANGE_KIND", "week")

	cfg, err := LoadConfig(writeConfig(t, "firefly:\n  url: https://ff.example\n  token: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Firefly.Token)
	assert.Equal(t, "week", cfg.Range.Kind)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, "firefly:\n  url: https://ff.example\n  token: abc\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "missing url", mutate: func(c *Config) { c.Firefly.URL = "" }, wantErr: ErrMissingURL},
		{name: "missing token", mutate: func(c *Config) { c.Firefly.Token = " " }, wantErr: ErrMissingToken},
		{name: "unknown kind", mutate: func(c *Config) { c.Range.Kind = "fortnight" }, wantErr: ErrInvalidRange},
		{name: "unknown unit", mutate: func(c *Config) { c.Range.LastXType = "m" }, wantErr: ErrInvalidRange},
		{name: "month start", mutate: func(c *Config) { c.Range.MonthStart = 32 }, wantErr: ErrInvalidRange},
		{name: "nats without url", mutate: func(c *Config) { c.Publish.Driver = "nats" }, wantErr: ErrInvalidPublish},
		{name: "unknown driver", mutate: func(c *Config) { c.Publish.Driver = "kafka" }, wantErr: ErrInvalidPublish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}

	cfg := base()
	cfg.Interval = "soon"
	assert.Error(t, cfg.Validate())
}

func TestConfigRangeSpec(t *testing.T) {
	cfg := &Config{}
	cfg.Range = RangeConfig{Kind: "year", MonthStart: 1, WeekStart: "mon", LastXBack: 3, LastXType: "w"}

	spec := cfg.RangeSpec("2024-04-06")
	assert.Equal(t, timerange.KindYear, spec.Kind)
	assert.Equal(t, "2024-04-06", spec.YearStart)
	assert.Equal(t, 3, spec.LastCount)
	assert.Equal(t, timerange.UnitWeeks, spec.LastUnit)

	cfg.Range.YearStart = "07-01"
	assert.Equal(t, "07-01", cfg.RangeSpec("2024-04-06").YearStart)
}

func TestNewViperKeys(t *testing.T) {
	v, err := NewViper(writeConfig(t, "firefly:\n  url: https://ff.example\n  token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://ff.example", v.GetString("firefly.url"))
	assert.Contains(t, v.AllKeys(), "return.account_types")
	assert.True(t, IsSecretKey("firefly.token"))
	assert.True(t, IsSecretKey("publish.password"))
	assert.False(t, IsSecretKey("publish.url"))
}
