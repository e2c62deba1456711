package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/libra/internal/api"
	"github.com/jackzampolin/libra/internal/config"
	"github.com/jackzampolin/libra/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if cfgFile != "" {
			path = cfgFile
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API keys stay as written)",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		mgr, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			fmt.Fprintf(os.Stderr, "# from %s\n", f)
		} else {
			fmt.Fprintln(os.Stderr, "# defaults (no config file found)")
		}
		format := api.GetOutputFormat()
		if format == api.OutputFormatText {
			format = api.OutputFormatYAML
		}
		return api.OutputTo(os.Stdout, format, mgr.Get(), nil)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
