package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lotusmail/lotus/internal/config"
	"github.com/lotusmail/lotus/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
	address    string
	wireLog    bool
	profile    bool
)

var rootCmd = &cobra.Command{
	Use:          "lotus",
	Short:        "Browse a mailbox through a lotus gateway",
	SilenceUsage: true,
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the folder tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		session, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer session.close()

		printTree(cmd.OutOrStdout(), session.roots)

		return nil
	},
}

var (
	fetchStart int
	fetchEnd   int
	fetchLimit int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <folder>",
	Short: "Print the messages of a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("start") {
			cfg.Fetch.Start = fetchStart
		}

		if cmd.Flags().Changed("end") {
			cfg.Fetch.End = fetchEnd
		}

		if cmd.Flags().Changed("limit") {
			cfg.Fetch.Limit = fetchLimit
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		session, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer session.close()

		messages, err := session.client.Fetch(args[0], cfg.Fetch.Start, cfg.Fetch.End, cfg.Fetch.Limit).Wait(ctx)
		if err != nil {
			return fmt.Errorf("fetching %v: %w", args[0], err)
		}

		printMessages(cmd.OutOrStdout(), messages)

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Default()

		fmt.Fprintf(cmd.OutOrStdout(), "%v %v (%v)\n", info.Name, info.Version.String(), info.SupportURL)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var initToken string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg := config.Default()
		cfg.Token = initToken

		if address != "" {
			cfg.Address = address
		}

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", path)

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Token != "" {
			cfg.Token = "********"
		}

		return (&config.Manager{}).Write(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config and "+config.LogLevelEnv)
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "gateway address, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&wireLog, "wire-log", false, "log every frame at trace level")
	rootCmd.PersistentFlags().BoolVar(&profile, "profile", false, "print request round trips on exit")

	fetchCmd.Flags().IntVar(&fetchStart, "start", 1, "first message of the window")
	fetchCmd.Flags().IntVar(&fetchEnd, "end", 100, "last message of the window")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 100, "maximum number of messages")

	configInitCmd.Flags().StringVar(&initToken, "token", "", "gateway token")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(treeCmd, fetchCmd, configCmd, versionCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}

	return config.DefaultPath()
}

// loadConfig reads the config file and applies the environment and flags over it.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		cfg = config.Default()
	}

	cfg.ApplyEnv()

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if address != "" {
		cfg.Address = address
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
