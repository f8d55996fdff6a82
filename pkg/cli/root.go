// Package cli wires the recorder, label server and post-processing tools
// into cobra commands.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"multicam-logger/pkg/config"
	"multicam-logger/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

type rootOptions struct {
	configPath string
	logLevel   string
	baseDir    string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "multicam-logger",
		Short: "Synchronized multi-camera recording",
		Long: "Records several webcams and a depth sensor in lockstep, storing frames and per-frame logs " +
			"for offline analysis, and serves the gesture label API used during experiments.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("base-dir") {
				cfg.BaseDir = opts.baseDir
			}
			if err = utils.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&opts.baseDir, "base-dir", "d", config.DefaultBaseDir, "dataset directory")

	rootCmd.AddCommand(NewRecordCmd(opts))
	rootCmd.AddCommand(NewServeCmd(opts))
	rootCmd.AddCommand(NewMergeLabelsCmd(opts))
	rootCmd.AddCommand(NewExportCmd(opts))
	rootCmd.AddCommand(NewDevicesCmd())

	return rootCmd
}

func Execute() error {
	defer func() {
		_ = logger.Sync()
	}()
	return NewRootCmd().Execute()
}
