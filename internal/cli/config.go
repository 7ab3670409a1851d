package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eoinhurrell/citelink/internal/config"
)

// LoadConfig loads .citelink.yaml (or the file named by --config) via
// config.Loader. It returns a nil *config.Config, not an error, when no
// config file was found and --config was not set explicitly, so callers can
// tell "no config present" apart from "config present with default values"
// and leave their own flag defaults undisturbed in the former case.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	loader := config.NewLoader()
	if configPath != "" {
		loader.SetConfigFile(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if loader.ConfigFileUsed() == "" {
		return nil, nil
	}
	return cfg, nil
}
