package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full set of consolidation settings. Values are resolved in
// order: built-in defaults, then the YAML configuration file, then
// SHEETROLLUP_* environment variables, then command line flags.
type Config struct {
	// MasterSpreadsheet is the ID of the spreadsheet listing the source sheets.
	MasterSpreadsheet string `yaml:"master-spreadsheet" env:"SHEETROLLUP_MASTER_SPREADSHEET"`

	// MasterTab is the worksheet within the master spreadsheet holding the list.
	MasterTab string `yaml:"master-tab" env:"SHEETROLLUP_MASTER_TAB"`

	// CompanyHeader is the master list column holding the company name.
	CompanyHeader string `yaml:"company-header" env:"SHEETROLLUP_COMPANY_HEADER"`

	// URLHeader is the master list column holding the source sheet URL.
	URLHeader string `yaml:"url-header" env:"SHEETROLLUP_URL_HEADER"`

	// TargetSpreadsheet is the ID of the spreadsheet receiving consolidated rows.
	TargetSpreadsheet string `yaml:"target-spreadsheet" env:"SHEETROLLUP_TARGET_SPREADSHEET"`

	// TargetTab is the worksheet receiving consolidated rows, created on demand.
	TargetTab string `yaml:"target-tab" env:"SHEETROLLUP_TARGET_TAB"`

	// ReadBounds is the column range read from each source sheet.
	ReadBounds string `yaml:"read-bounds" env:"SHEETROLLUP_READ_BOUNDS"`

	// Credentials is the path to the Google service account key file.
	Credentials string `yaml:"credentials" env:"SHEETROLLUP_CREDENTIALS"`

	// SeenSet is the path to the persisted fingerprint set.
	SeenSet string `yaml:"seen-set" env:"SHEETROLLUP_SEEN_SET"`

	// Store selects the seen-set backing medium - 'file' or 'sqlite'.
	Store string `yaml:"store" env:"SHEETROLLUP_STORE"`

	// BatchSize is the number of sources consolidated between target writes.
	BatchSize int `yaml:"batch-size" env:"SHEETROLLUP_BATCH_SIZE"`

	// CompanyColumn appends the company name to each consolidated row.
	CompanyColumn bool `yaml:"company-column" env:"SHEETROLLUP_COMPANY_COLUMN"`

	// RevisionCheck skips sources whose Drive revision hasn't changed.
	RevisionCheck bool `yaml:"revision-check" env:"SHEETROLLUP_REVISION_CHECK"`

	// IdentityColumns restricts row fingerprints to the named columns.
	IdentityColumns []string `yaml:"identity-columns" env:"SHEETROLLUP_IDENTITY_COLUMNS" envSeparator:","`

	// Interval is the delay between consolidation passes in watch mode.
	Interval Duration `yaml:"interval" env:"SHEETROLLUP_INTERVAL"`
}

// Duration wraps time.Duration so that values like '4h' parse from both the
// configuration file and the environment.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d *Duration) UnmarshalText(bytes []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(bytes)))
	if err != nil {
		return fmt.Errorf("invalid duration '%s'", string(bytes))
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func Default() Config {
	return Config{
		MasterTab:     "Active Clients",
		CompanyHeader: "Company",
		URLHeader:     "Appointment Spreadsheet:",
		TargetTab:     "Sheet1",
		ReadBounds:    "A:Q",
		Store:         "file",
		BatchSize:     25,
		CompanyColumn: true,
		RevisionCheck: true,
		Interval:      Duration(4 * time.Hour),
	}
}

// Load resolves the configuration from the file at path (if it exists) and
// the environment. A missing file is not an error - everything can be
// supplied by environment variables and flags.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		bytes, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("unable to read configuration file %s (%w)", path, err)
		} else if err == nil {
			if err := yaml.Unmarshal(bytes, &cfg); err != nil {
				return cfg, fmt.Errorf("unable to parse configuration file %s (%w)", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment (%w)", err)
	}

	return cfg, nil
}

// Validate checks the settings without which a run cannot start.
func (c Config) Validate() error {
	if strings.TrimSpace(c.MasterSpreadsheet) == "" {
		return fmt.Errorf("master-spreadsheet is required")
	}

	if strings.TrimSpace(c.TargetSpreadsheet) == "" {
		return fmt.Errorf("target-spreadsheet is required")
	}

	if strings.TrimSpace(c.Credentials) == "" {
		return fmt.Errorf("credentials is required")
	}

	if c.Store != "file" && c.Store != "sqlite" {
		return fmt.Errorf("invalid store '%s' - expected 'file' or 'sqlite'", c.Store)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("invalid interval '%v' - expected a positive duration", c.Interval)
	}

	return nil
}
