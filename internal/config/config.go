// =============================================================================
// Model Merger - Configuration Module
// =============================================================================
//
// This module loads the optional config.yaml and turns it, together with the
// command-line flags, into the RunOptions record used by one merge run.
//
// CONFIGURATION FILE (all keys optional):
//
//   output_dir: ./output
//   output_name_format: "Model_Merged_Final.xlsx"
//   sheet_name: "Merged Data"
//   sqlite_table: merged_data
//   log_level: info
//   preview_rows: 10
//   classification:
//     exclusive: false
//     keywords:
//       identifier: [MODEL, STYLE, ITEM, CODE]
//       quantity:   [QTY, QUANTITY, PCS]
//       price:      [PRICE, U.PRICE, UNIT]
//       amount:     [AMOUNT, TOTAL, VALUE]
//   headers:
//     identifier: MODEL
//     unit_price: Unit_Price
//   defaults:
//     min_quantity: 0
//     identifier_contains: ""
//     where: ""
//     sort_key: identifier
//     sort_direction: ""
//
// PRECEDENCE:
//   built-in defaults < config file < command-line flags
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/model-merger/internal/classifier"
	"github.com/ginjaninja78/model-merger/internal/report"
	"github.com/ginjaninja78/model-merger/internal/types"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when --config is not given. A missing file at
// this path is not an error.
const DefaultConfigPath = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where exported workbooks are placed.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputNameFormat defines the exported file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {original}  - Input file name without extension
	//
	// Example: "{original}_merged_{timestamp}.xlsx"
	// Default: "Model_Merged_Final.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// SheetName is the name of the result sheet.
	// Default: "Merged Data"
	SheetName string `yaml:"sheet_name"`

	// SQLiteTable is the table written by the optional SQLite export.
	// Default: "merged_data"
	SQLiteTable string `yaml:"sqlite_table"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// DISPLAY SETTINGS
	// =========================================================================

	// PreviewRows is the number of rows printed for the raw and normalized
	// previews.
	// Default: 10
	PreviewRows int `yaml:"preview_rows"`

	// =========================================================================
	// CLASSIFICATION, HEADERS AND DEFAULTS
	// =========================================================================

	Classification ClassificationConfig `yaml:"classification"`

	// Headers are the labels of the computed export columns.
	Headers report.Labels `yaml:"headers"`

	// Defaults are the filter and sort settings used when no flag is given.
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ClassificationConfig tunes column role detection.
type ClassificationConfig struct {
	// Exclusive stops one column from serving two roles.
	// Default: false
	Exclusive bool `yaml:"exclusive"`

	// Keywords replaces the keyword list of the roles it names. Keywords are
	// tried in order and matched as substrings of the upper-cased header.
	Keywords KeywordConfig `yaml:"keywords"`
}

// KeywordConfig holds one keyword list per role.
type KeywordConfig struct {
	Identifier []string `yaml:"identifier"`
	Quantity   []string `yaml:"quantity"`
	Price      []string `yaml:"price"`
	Amount     []string `yaml:"amount"`
}

// ByRole returns the lists keyed by role, leaving out empty ones.
func (k KeywordConfig) ByRole() map[types.Role][]string {
	out := make(map[types.Role][]string)
	add := func(role types.Role, list []string) {
		if len(list) > 0 {
			out[role] = list
		}
	}
	add(types.RoleIdentifier, k.Identifier)
	add(types.RoleQuantity, k.Quantity)
	add(types.RolePrice, k.Price)
	add(types.RoleAmount, k.Amount)
	return out
}

// DefaultsConfig holds the default filters and sort order.
type DefaultsConfig struct {
	MinQuantity        float64 `yaml:"min_quantity"`
	IdentifierContains string  `yaml:"identifier_contains"`
	Where              string  `yaml:"where"`

	// SortKey: identifier, totalQuantity, totalAmount or unitPrice.
	// Default: "identifier"
	SortKey string `yaml:"sort_key"`

	// SortDirection: "asc", "desc" or empty for the key's natural order.
	SortDirection string `yaml:"sort_direction"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *MainConfig {
	var cfg MainConfig
	applyMainConfigDefaults(&cfg)
	return &cfg
}

// LoadMainConfig loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. Empty means
//     DefaultConfigPath.
//
// RETURNS:
//   - A pointer to the MainConfig struct. When configPath is empty and the
//     default file does not exist, the built-in defaults are returned.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseMainConfig(data)
}

// ParseMainConfig decodes, defaults and validates YAML configuration data.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "Model_Merged_Final.xlsx"
	}
	if config.SheetName == "" {
		config.SheetName = "Merged Data"
	}
	if config.SQLiteTable == "" {
		config.SQLiteTable = "merged_data"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.PreviewRows == 0 {
		config.PreviewRows = 10
	}
	if config.Defaults.SortKey == "" {
		config.Defaults.SortKey = string(types.SortByIdentifier)
	}

	defaults := report.DefaultLabels()
	h := &config.Headers
	for _, pair := range []struct {
		field *string
		value string
	}{
		{&h.Identifier, defaults.Identifier},
		{&h.Quantity, defaults.Quantity},
		{&h.Price, defaults.Price},
		{&h.Amount, defaults.Amount},
		{&h.UnitPrice, defaults.UnitPrice},
	} {
		if *pair.field == "" {
			*pair.field = pair.value
		}
	}
}

// validateMainConfig checks values that defaults cannot repair.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: expected debug, info, warn or error", config.LogLevel)
	}

	if config.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative, got %d", config.PreviewRows)
	}

	if config.Defaults.MinQuantity < 0 {
		return fmt.Errorf("defaults.min_quantity must not be negative, got %v", config.Defaults.MinQuantity)
	}

	if _, ok := types.ParseSortKey(config.Defaults.SortKey); !ok {
		return fmt.Errorf("defaults.sort_key %q is not a known sort key", config.Defaults.SortKey)
	}

	if _, err := ParseDirection(config.Defaults.SortDirection); err != nil {
		return fmt.Errorf("defaults.sort_direction: %w", err)
	}

	return nil
}

// =============================================================================
// RUN OPTIONS
// =============================================================================

// RunOptions is everything one merge run needs besides its input. It is
// built once from the configuration and the flags and not changed afterwards.
type RunOptions struct {
	// Overrides replaces detected role columns.
	Overrides types.ColumnRoles

	// Keywords and Exclusive configure role detection.
	Keywords  map[types.Role][]string
	Exclusive bool

	// Aggregate holds the filters and sort order.
	Aggregate types.AggregateOptions

	// OutputDir and NameFormat place the exported workbook.
	OutputDir  string
	NameFormat string

	// SQLitePath enables the SQLite export when set.
	SQLitePath string
}

// ClassifierOptions returns the options for role detection.
func (o RunOptions) ClassifierOptions() classifier.Options {
	return classifier.Options{
		Keywords:  o.Keywords,
		Exclusive: o.Exclusive,
		Overrides: o.Overrides,
	}
}

// NewRunOptions returns the run options described by the configuration
// alone. Callers layer flag values on top of the returned record.
func NewRunOptions(config *MainConfig) RunOptions {
	key, _ := types.ParseSortKey(config.Defaults.SortKey)
	dir, _ := ParseDirection(config.Defaults.SortDirection)

	return RunOptions{
		Keywords:  config.Classification.Keywords.ByRole(),
		Exclusive: config.Classification.Exclusive,
		Aggregate: types.AggregateOptions{
			MinQuantity:        config.Defaults.MinQuantity,
			IdentifierContains: config.Defaults.IdentifierContains,
			Where:              config.Defaults.Where,
			SortKey:            key,
			Direction:          dir,
		},
		OutputDir:  config.OutputDir,
		NameFormat: config.OutputNameFormat,
	}
}

// ErrInvalidDirection is returned for a sort direction other than asc/desc.
var ErrInvalidDirection = errors.New("sort direction must be asc or desc")

// ParseDirection accepts "asc", "desc" (any case) or empty.
func ParseDirection(s string) (types.SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return types.SortDefault, nil
	case "asc", "ascending":
		return types.SortAscending, nil
	case "desc", "descending":
		return types.SortDescending, nil
	}
	return types.SortDefault, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}
