package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor AGROQUOTE_CONFIG is given.
const DefaultPath = "config/agroquote.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for agroquote.
type Config struct {
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	Scrape  Scrape  `yaml:"scrape"`
	Ingest  Ingest  `yaml:"ingest"`
	Sheets  Sheets  `yaml:"sheets"`
	Export  Export  `yaml:"export"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger. Dir receives one log file per
// day in addition to stdout; empty disables file logging.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// Scrape configures access to the quotation site.
type Scrape struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
	UserAgent      string  `yaml:"user_agent"`
}

// Timeout returns TimeoutSec as a duration.
func (s Scrape) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Ingest controls how date ranges are processed.
type Ingest struct {
	Workers          int      `yaml:"workers"`
	Parallel         bool     `yaml:"parallel"`
	StopOnError      bool     `yaml:"stop_on_error"`
	BusinessDaysOnly bool     `yaml:"business_days_only"`
	EarliestDate     string   `yaml:"earliest_date"`
	Holidays         []string `yaml:"holidays"`
	ReadWorkers      int      `yaml:"read_workers"`
}

// Earliest parses EarliestDate; an empty value yields the zero time.
func (i Ingest) Earliest() (time.Time, error) {
	if i.EarliestDate == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", i.EarliestDate)
}

// Sheets configures the Google Sheets secondary load. It is enabled when
// both fields are set.
type Sheets struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
}

// Enabled reports whether the Sheets load is configured.
func (s Sheets) Enabled() bool {
	return s.CredentialsFile != "" && s.SpreadsheetID != ""
}

// Export configures the CSV secondary load.
type Export struct {
	CSVDir string `yaml:"csv_dir"`
}

// Defaults returns the configuration used for any field a file leaves out.
func Defaults() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "output/parquet",
			SQLitePath: "output/agroquote.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Dir:    "output/logs",
		},
		Scrape: Scrape{
			BaseURL:        "https://www.noticiasagricolas.com.br/cotacoes/boi-gordo",
			TimeoutSec:     30,
			RequestsPerSec: 0.5,
			Burst:          1,
		},
		Ingest: Ingest{
			Workers:          3,
			StopOnError:      true,
			BusinessDaysOnly: true,
			EarliestDate:     "2015-01-01",
			ReadWorkers:      4,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML file at path over Defaults and then applies
// environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must be set")
	}
	if c.Ingest.Workers < 1 {
		return errors.Newf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if _, err := c.Ingest.Earliest(); err != nil {
		return errors.Wrapf(err, "ingest.earliest_date %q", c.Ingest.EarliestDate)
	}
	for _, h := range c.Ingest.Holidays {
		if _, err := time.Parse("01-02", h); err != nil {
			return errors.Newf("ingest.holidays entry %q is not MM-DD", h)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.Newf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SCRAPE_BASE_URL"); v != "" {
		cfg.Scrape.BaseURL = v
	}
	if v := os.Getenv("INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Workers = n
		}
	}

	if v := os.Getenv("GOOGLE_CREDENTIALS"); v != "" {
		cfg.Sheets.CredentialsFile = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
}
