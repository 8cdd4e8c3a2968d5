package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/model-merger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "Model_Merged_Final.xlsx", cfg.OutputNameFormat)
	assert.Equal(t, "Merged Data", cfg.SheetName)
	assert.Equal(t, "merged_data", cfg.SQLiteTable)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.PreviewRows)
	assert.Equal(t, "MODEL", cfg.Headers.Identifier)
	assert.Equal(t, "Unit_Price", cfg.Headers.UnitPrice)
}

func TestParseMainConfig(t *testing.T) {
	data := []byte(`
output_dir: /tmp/merged
output_name_format: "{original}_{date}.xlsx"
preview_rows: 5
classification:
  exclusive: true
  keywords:
    identifier: [ARTICLE, SKU]
headers:
  identifier: Article
defaults:
  min_quantity: 3
  sort_key: qty
  sort_direction: DESC
`)

	cfg, err := ParseMainConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/merged", cfg.OutputDir)
	assert.Equal(t, 5, cfg.PreviewRows)
	assert.True(t, cfg.Classification.Exclusive)
	assert.Equal(t, "Article", cfg.Headers.Identifier)
	assert.Equal(t, "Total_QTY", cfg.Headers.Quantity, "unset labels keep their default")

	opts := NewRunOptions(cfg)
	assert.Equal(t, map[types.Role][]string{types.RoleIdentifier: {"ARTICLE", "SKU"}}, opts.Keywords)
	assert.True(t, opts.Exclusive)
	assert.Equal(t, 3.0, opts.Aggregate.MinQuantity)
	assert.Equal(t, types.SortByTotalQuantity, opts.Aggregate.SortKey)
	assert.Equal(t, types.SortDescending, opts.Aggregate.Direction)
	assert.Equal(t, "{original}_{date}.xlsx", opts.NameFormat)

	co := opts.ClassifierOptions()
	assert.True(t, co.Exclusive)
	assert.Equal(t, opts.Keywords, co.Keywords)
}

func TestParseMainConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "output_dir: [unclosed"},
		{"log level", "log_level: loud"},
		{"negative preview", "preview_rows: -1"},
		{"negative min qty", "defaults:\n  min_quantity: -2"},
		{"sort key", "defaults:\n  sort_key: color"},
		{"direction", "defaults:\n  sort_direction: sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMainConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfig_MissingDefaultFileIsTolerated(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadMainConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMainConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadMainConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sheet_name: Totals\n"), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Totals", cfg.SheetName)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    types.SortDirection
		wantErr bool
	}{
		{"", types.SortDefault, false},
		{"asc", types.SortAscending, false},
		{" Desc ", types.SortDescending, false},
		{"descending", types.SortDescending, false},
		{"up", types.SortDefault, true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDirection, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
