package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/hbnb/internal/filestore"
	"github.com/mesh-intelligence/hbnb/internal/paths"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	DataDir  string `yaml:"data_dir,omitempty"`
	FileName string `yaml:"file_name"`
	LogLevel string `yaml:"log_level"`
	Index    bool   `yaml:"index"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml and create the backing file",
		Long: `Create the configuration directory and config.yaml, then load and save
the store so the backing file exists. Existing files are kept.`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return systemError("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return systemError("create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, flags.dataDir); err != nil {
		return systemError("write config: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Persist(); err != nil {
		return systemError("initialize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "hbnb initialized: %s\n", a.store.Path())
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if dataDir != "" {
		abs, err := filepath.Abs(dataDir)
		if err != nil {
			return err
		}
		dataDir = abs
	}
	cfg := configFile{
		DataDir:  dataDir,
		FileName: filestore.DefaultFileName,
		LogLevel: defaultLogLevel,
		Index:    true,
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
