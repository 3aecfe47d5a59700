package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FIREFLYIII_FIREFLY_TOKEN.
const EnvPrefix = "FIREFLYIII"

var (
	// ErrMissingURL is returned when no server URL is configured
	ErrMissingURL = errors.New("firefly.url is required")

	// ErrMissingToken is returned when no access token is configured
	ErrMissingToken = errors.New("firefly.token is required")

	// ErrInvalidRange is returned for an unknown range kind or unit
	ErrInvalidRange = errors.New("invalid range configuration")

	// ErrInvalidPublish is returned for an unknown or incomplete publish driver
	ErrInvalidPublish = errors.New("invalid publish configuration")
)

// Config represents the adapter configuration
type Config struct {
	// Firefly III connection
	Firefly struct {
		URL                string        `mapstructure:"url"`
		Token              string        `mapstructure:"token"`
		VerifyCertificates bool          `mapstructure:"verify_certificates"`
		Timeout            time.Duration `mapstructure:"timeout"`
	} `mapstructure:"firefly"`

	// Instance identifies this configured server for unique ids and events
	Instance struct {
		Name    string `mapstructure:"name"`
		EntryID string `mapstructure:"entry_id"`
	} `mapstructure:"instance"`

	// Interval between poll cycles, e.g. "60s"
	Interval string `mapstructure:"interval"`

	Range RangeConfig `mapstructure:"range"`

	Return ReturnConfig `mapstructure:"return"`

	HTTP struct {
		Listen string `mapstructure:"listen"` // e.g. ":8080", empty disables the API
	} `mapstructure:"http"`

	// Database stores poll cycle outcomes, empty path disables it
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Publish PublishConfig `mapstructure:"publish"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // human or json
		Dir    string `mapstructure:"dir"`
	} `mapstructure:"log"`
}

// RangeConfig selects the reporting window
type RangeConfig struct {
	Kind       string `mapstructure:"kind"` // year, month, week, day, lastx
	Previous   bool   `mapstructure:"previous"`
	YearStart  string `mapstructure:"year_start"` // empty uses the server's fiscal year start
	MonthStart int    `mapstructure:"month_start"`
	WeekStart  string `mapstructure:"week_start"`
	LastXBack  int    `mapstructure:"lastx_back"`
	LastXType  string `mapstructure:"lastx_type"` // d, w, y
}

// ReturnConfig selects which domains are fetched each cycle
type ReturnConfig struct {
	Accounts            bool     `mapstructure:"accounts"`
	AccountTypes        []string `mapstructure:"account_types"`
	AccountIDs          []string `mapstructure:"account_ids"`
	AccountTransactions int      `mapstructure:"account_transactions"` // 0 disables
	Categories          bool     `mapstructure:"categories"`
	CategoryIDs         []string `mapstructure:"category_ids"`
	Bills               bool     `mapstructure:"bills"`
	Budgets             bool     `mapstructure:"budgets"`
	PiggyBanks          bool     `mapstructure:"piggy_banks"`
	Currencies          bool     `mapstructure:"currencies"`
	Currency            string   `mapstructure:"currency"` // empty uses the server default
}

// PublishConfig selects the snapshot event sink
type PublishConfig struct {
	Driver   string `mapstructure:"driver"` // "", nats or amqp
	URL      string `mapstructure:"url"`
	Subject  string `mapstructure:"subject"`
	Exchange string `mapstructure:"exchange"`

	// NATS only
	Stream         string `mapstructure:"stream"` // empty publishes without JetStream
	ControlSubject string `mapstructure:"control_subject"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Token          string `mapstructure:"token"`
}

// LoadConfig loads the configuration from .env, an optional file and the environment
func LoadConfig(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// NewViper resolves the settings LoadConfig decodes. An empty configFile
// searches the working directory, DefaultConfigPath and /etc/fireflyiii.
func NewViper(configFile string) (*viper.Viper, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()

	setDefaultConfig(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigPath)
		v.AddConfigPath("/etc/fireflyiii/")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if the config file doesn't exist
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// IsSecretKey reports whether a setting holds a credential.
func IsSecretKey(key string) bool {
	key = strings.ToLower(key)
	return strings.HasSuffix(key, "token") || strings.HasSuffix(key, "password")
}

// setDefaultConfig sets default configuration values
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("firefly.url", "")
	v.SetDefault("firefly.token", "")
	v.SetDefault("firefly.verify_certificates", false)
	v.SetDefault("firefly.timeout", "10s")

	v.SetDefault("instance.name", "FireflyIII")
	v.SetDefault("instance.entry_id", "default")

	v.SetDefault("interval", "60s")

	v.SetDefault("range.kind", string(timerange.DefaultKind))
	v.SetDefault("range.previous", false)
	v.SetDefault("range.year_start", "")
	v.SetDefault("range.month_start", 1)
	v.SetDefault("range.week_start", "mon")
	v.SetDefault("range.lastx_back", 1)
	v.SetDefault("range.lastx_type", string(timerange.UnitDays))

	v.SetDefault("return.accounts", true)
	v.SetDefault("return.account_types", []string{"asset"})
	v.SetDefault("return.account_ids", []string{})
	v.SetDefault("return.account_transactions", 0)
	v.SetDefault("return.categories", true)
	v.SetDefault("return.category_ids", []string{})
	v.SetDefault("return.bills", true)
	v.SetDefault("return.budgets", false)
	v.SetDefault("return.piggy_banks", false)
	v.SetDefault("return.currencies", false)
	v.SetDefault("return.currency", "")

	v.SetDefault("http.listen", "")
	v.SetDefault("database.path", "")

	v.SetDefault("publish.driver", "")
	v.SetDefault("publish.url", "")
	v.SetDefault("publish.subject", "fireflyiii.snapshot")
	v.SetDefault("publish.exchange", "fireflyiii")
	v.SetDefault("publish.stream", "")
	v.SetDefault("publish.control_subject", "fireflyiii.control")
	v.SetDefault("publish.username", "")
	v.SetDefault("publish.password", "")
	v.SetDefault("publish.token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")
	v.SetDefault("log.dir", "")
}

// Validate checks the settings needed to poll a server
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Firefly.URL) == "" {
		return ErrMissingURL
	}
	if strings.TrimSpace(c.Firefly.Token) == "" {
		return ErrMissingToken
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}

	switch timerange.Kind(c.Range.Kind) {
	case timerange.KindYear, timerange.KindMonth, timerange.KindWeek, timerange.KindDay, timerange.KindLastX:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRange, c.Range.Kind)
	}
	switch timerange.Unit(c.Range.LastXType) {
	case timerange.UnitDays, timerange.UnitWeeks, timerange.UnitYears:
	default:
		return fmt.Errorf("%w: unknown lastx_type %q", ErrInvalidRange, c.Range.LastXType)
	}
	if c.Range.MonthStart < 1 || c.Range.MonthStart > 31 {
		return fmt.Errorf("%w: month_start %d outside 1-31", ErrInvalidRange, c.Range.MonthStart)
	}

	switch c.Publish.Driver {
	case "":
	case "nats", "amqp":
		if c.Publish.URL == "" {
			return fmt.Errorf("%w: publish.url is required for driver %q", ErrInvalidPublish, c.Publish.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidPublish, c.Publish.Driver)
	}
	return nil
}

// PollInterval parses Interval
func (c *Config) PollInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval format: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", interval)
	}
	return interval, nil
}

// RangeSpec converts the range settings for the resolver. fiscalYearStart
// is used when no explicit year start is configured.
func (c *Config) RangeSpec(fiscalYearStart string) timerange.Config {
	yearStart := c.Range.YearStart
	if yearStart == "" {
		yearStart = fiscalYearStart
	}
	return timerange.Config{
		Kind:       timerange.Kind(c.Range.Kind),
		Previous:   c.Range.Previous,
		YearStart:  yearStart,
		MonthStart: c.Range.MonthStart,
		WeekStart:  c.Range.WeekStart,
		LastCount:  c.Range.LastXBack,
		LastUnit:   timerange.Unit(c.Range.LastXType),
	}
}
