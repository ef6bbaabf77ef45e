// =============================================================================
// PO Budget Report - Configuration Module
// =============================================================================
//
// This module loads the application configuration (config.yaml).
//
// CONFIGURATION FILE:
//   config.yaml: data file location, CSV decoding, extra column aliases,
//   report defaults and the previous-version simulation.
//
// LOADING RULES:
//   - A missing file is not an error: every setting has a default.
//   - A file that exists but cannot be parsed is an error.
//   - Defaults are applied after parsing, then the result is validated.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ginjaninja78/po-budget-report/internal/csvparser"
	"github.com/ginjaninja78/po-budget-report/internal/engine"
	"github.com/ginjaninja78/po-budget-report/internal/log"
	"github.com/ginjaninja78/po-budget-report/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not set.
const DefaultPath = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// DataFile is the PO report loaded when --file is not given.
	// Relative names are searched in SearchDirs.
	// Default: "budget_data.xlsx"
	DataFile string `yaml:"data_file"`

	// SheetName is the worksheet read from XLSX files. Empty means the first
	// sheet.
	// Default: "Sheet1"
	SheetName string `yaml:"sheet_name"`

	// SearchDirs lists where DataFile is looked for, in order. The special
	// entry "{exe}" stands for the directory of the executable.
	// Default: [".", "{exe}", ".."]
	SearchDirs []string `yaml:"search_dirs"`

	// CSV contains settings for reading CSV input.
	CSV CSVSettings `yaml:"csv"`

	// ColumnAliases declares extra header variants per canonical field.
	//
	// CUSTOMIZATION: Add the headers used by your export.
	// Example:
	//   column_aliases:
	//     po_value: ["Net Amount", "PO Amount"]
	ColumnAliases map[string][]string `yaml:"column_aliases"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where exported files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputNameFormat defines the export file name.
	// Placeholders:
	//   {report}    - Report name (e.g. "po_details")
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	//   {ext}       - File extension without the dot
	// Default: "{report}_{timestamp}.{ext}"
	OutputNameFormat string `yaml:"output_name_format"`

	// Currency is the label shown next to amounts. It never changes the
	// numbers themselves.
	// Default: "CNY"
	Currency string `yaml:"currency"`

	// TopN is the default length of "largest" listings.
	// Default: 10
	TopN int `yaml:"top_n"`

	// =========================================================================
	// ENGINE SETTINGS
	// =========================================================================

	// CacheSize bounds the number of memoized aggregation results. Set to
	// -1 to disable caching.
	// Default: 64
	CacheSize int `yaml:"cache_size"`

	// Simulation configures the synthetic previous version.
	Simulation SimulationSettings `yaml:"simulation"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects "text" or "json" log output.
	// Default: "text"
	LogFormat string `yaml:"log_format"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), ";" (semicolon), "|" (pipe), "tab"
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the CSV file.
	// Valid values: "UTF-8", "GBK", "GB18030", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// HeaderRows is the number of header rows in the CSV file.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`
}

// SimulationSettings configures the synthetic previous version used by
// `compare --simulate`.
type SimulationSettings struct {
	// Seed makes the perturbation reproducible.
	// Default: 42
	Seed *uint64 `yaml:"seed"`

	// Fraction is the share of lines whose PO value is changed.
	// Default: 0.3
	Fraction *float64 `yaml:"fraction"`

	// MinFactor and MaxFactor bound the random multiplier.
	// Default: 0.9 and 1.1
	MinFactor float64 `yaml:"min_factor"`
	MaxFactor float64 `yaml:"max_factor"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no file exists.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main application configuration.
//
// PARAMETERS:
//   - configPath: The path to the config.yaml file.
//
// RETURNS:
//   - The configuration with defaults applied. A missing file yields the
//     defaults.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	// Validate the configuration.
	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.DataFile == "" {
		config.DataFile = "budget_data.xlsx"
	}
	if config.SheetName == "" {
		config.SheetName = "Sheet1"
	}
	if len(config.SearchDirs) == 0 {
		config.SearchDirs = []string{".", "{exe}", ".."}
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "UTF-8"
	}
	if config.CSV.HeaderRows == 0 {
		config.CSV.HeaderRows = 1
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{report}_{timestamp}.{ext}"
	}
	if config.Currency == "" {
		config.Currency = "CNY"
	}
	if config.TopN == 0 {
		config.TopN = 10
	}
	if config.CacheSize == 0 {
		config.CacheSize = 64
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}

	defaults := engine.DefaultSimulation()
	if config.Simulation.Seed == nil {
		config.Simulation.Seed = &defaults.Seed
	}
	if config.Simulation.Fraction == nil {
		config.Simulation.Fraction = &defaults.Fraction
	}
	if config.Simulation.MinFactor == 0 && config.Simulation.MaxFactor == 0 {
		config.Simulation.MinFactor = defaults.MinFactor
		config.Simulation.MaxFactor = defaults.MaxFactor
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if _, err := log.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(config.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", config.LogFormat)
	}
	if _, err := csvparser.Delimiter(config.CSV.Delimiter); err != nil {
		return fmt.Errorf("csv.delimiter: %w", err)
	}
	if _, err := csvparser.Decoder(config.CSV.Encoding); err != nil {
		return fmt.Errorf("csv.encoding: %w", err)
	}
	if config.CSV.HeaderRows < 1 {
		return fmt.Errorf("csv.header_rows must be at least 1")
	}
	if config.TopN < 0 {
		return fmt.Errorf("top_n must not be negative")
	}
	if err := config.SimulationConfig().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if _, err := config.ColumnMap(); err != nil {
		return fmt.Errorf("column_aliases: %w", err)
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// CSVParserSettings converts the CSV section for the parser.
func (c *MainConfig) CSVParserSettings() csvparser.Settings {
	return csvparser.Settings{
		Delimiter:  c.CSV.Delimiter,
		Encoding:   c.CSV.Encoding,
		HeaderRows: c.CSV.HeaderRows,
	}
}

// ColumnMap returns the built-in header aliases extended with
// column_aliases. Keys may be canonical names ("po_value") or labels
// ("PO Value - LC").
func (c *MainConfig) ColumnMap() (*model.ColumnMap, error) {
	m := model.DefaultColumnMap()
	for name, headers := range c.ColumnAliases {
		field := model.ParseField(name)
		if err := m.Add(field, headers...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SimulationConfig converts the simulation section for the engine.
func (c *MainConfig) SimulationConfig() engine.SimulationConfig {
	sim := engine.DefaultSimulation()
	if c.Simulation.Seed != nil {
		sim.Seed = *c.Simulation.Seed
	}
	if c.Simulation.Fraction != nil {
		sim.Fraction = *c.Simulation.Fraction
	}
	if c.Simulation.MinFactor != 0 || c.Simulation.MaxFactor != 0 {
		sim.MinFactor = c.Simulation.MinFactor
		sim.MaxFactor = c.Simulation.MaxFactor
	}
	return sim
}

// EngineCacheSize returns the cache size for engine.WithCacheSize.
func (c *MainConfig) EngineCacheSize() int {
	if c.CacheSize < 0 {
		return 0
	}
	return c.CacheSize
}
