package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arloliu/mezip/internal/logging"
)

var version = "dev"

// app holds the state shared by every subcommand.
type app struct {
	verbosity  int
	noColor    bool
	configPath string

	cfg    *Config
	logger zerolog.Logger
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "mezip", "config.toml")
}

// NewRootCmd builds the mezip command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mezip",
		Short: "Update ZIP archives with parallel compression",
		Long: `mezip adds, renames and deletes entries of ZIP archives. Entries that do
not change are copied without recompression; new content is compressed on
several threads while the archive keeps the order given on the command line.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = logging.Setup(a.verbosity, cmd.ErrOrStderr(), a.noColor)

			path, required := a.configPath, true
			if !cmd.Flags().Changed("config") {
				path, required = defaultConfigPath(), false
			}
			cfg, err := loadConfig(path, required)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger.Debug().Str("command", cmd.Name()).Str("config", path).Msg("Command started")

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored log output")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/mezip/config.toml)")

	rootCmd.AddCommand(
		newAddCmd(a),
		newRenameCmd(a),
		newDeleteCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mezip version %s\n", version)
			},
		},
	)

	return rootCmd
}

// bindUpdateFlags registers the flags overriding the configuration file.
func bindUpdateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("threads", "t", 0, "Number of threads (default: CPU count)")
	f.StringSliceP("method", "m", nil, "Compression methods in order of preference (store, deflate, zstd, s2, lz4)")
	f.IntP("level", "l", 0, "Compression level, 0 selects the codec default")
	f.Int64("memory-per-thread", 0, "Buffer budget of one worker in bytes")
	f.Int("block-size", 0, "Buffer block size in bytes")
	f.Int("aes", 0, "Mark new entries as AES encrypted with this key strength (128, 192, 256)")
	f.String("comment", "", "Archive comment (default: keep the existing comment)")
}

// applyFlags overrides cfg with the flags set on cmd.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	f := cmd.Flags()

	var err error
	if f.Changed("threads") {
		if cfg.Threads, err = f.GetInt("threads"); err != nil {
			return err
		}
	}
	if f.Changed("method") {
		if cfg.Methods, err = f.GetStringSlice("method"); err != nil {
			return err
		}
	}
	if f.Changed("level") {
		if cfg.Level, err = f.GetInt("level"); err != nil {
			return err
		}
	}
	if f.Changed("memory-per-thread") {
		if cfg.MemoryPerThread, err = f.GetInt64("memory-per-thread"); err != nil {
			return err
		}
	}
	if f.Changed("block-size") {
		if cfg.BlockSize, err = f.GetInt("block-size"); err != nil {
			return err
		}
	}
	if f.Changed("aes") {
		if cfg.AESStrength, err = f.GetInt("aes"); err != nil {
			return err
		}
	}
	if f.Changed("comment") {
		comment, err := f.GetString("comment")
		if err != nil {
			return err
		}
		cfg.Comment = &comment
	}

	return nil
}
