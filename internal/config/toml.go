// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Pivot  PivotConfig  `toml:"pivot"`
	Export ExportConfig `toml:"export"`
}

// PivotConfig maps the recomputation defaults.
type PivotConfig struct {
	Join      *string `toml:"join"`
	Operation *string `toml:"operation"`
	Format    *string `toml:"format"`
}

// ExportConfig maps export settings.
type ExportConfig struct {
	Dir   *string `toml:"dir"`
	Sheet *string `toml:"sheet"`
}

// Settings are the resolved values after flags and file are merged.
type Settings struct {
	Join      string `validate:"oneof=inner left right outer"`
	Operation string `validate:"oneof=sum count max min average avg mean"`
	Format    string `validate:"oneof=number integer date time plain-number"`
	ExportDir string `validate:"required"`
	Sheet     string `validate:"required,max=31,excludesall=:\\/?*[]"`
}

var validate = validator.New()

// Validate checks that every setting holds an accepted value.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s %q (rule %s)", strings.ToLower(fe.Field()), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("failed to validate settings: %w", err)
	}
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
