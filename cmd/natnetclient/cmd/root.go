package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/natnetgo/natnet/natnet/client"
)

// RootCmd is natnetclient's entry point.
var RootCmd = &cobra.Command{
	Use:   "natnetclient",
	Short: "Swiss Army Knife for NatNet motion-capture streams",
}

var (
	rootVerboseFlag bool
	rootConfigFlag  string
	rootServerFlag  string
	rootLocalFlag   string
	rootMulticast   bool
	rootTimeout     time.Duration
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&rootConfigFlag, "config", "c", "", "path to a YAML config file; CLI flags below override it")
	RootCmd.PersistentFlags().StringVarP(&rootServerFlag, "server", "s", "", "NatNet server address")
	RootCmd.PersistentFlags().StringVar(&rootLocalFlag, "local", "", "local bind / multicast-interface address")
	RootCmd.PersistentFlags().BoolVar(&rootMulticast, "multicast", false, "force multicast transport on/off")
	RootCmd.PersistentFlags().DurationVar(&rootTimeout, "timeout", 0, "connect timeout")
}

// ConfigureVerbosity sets logrus' level from the --verbose flag. Every
// subcommand's Run must call this first.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// LoadConfig builds a client.Config from --config plus any CLI flag
// overrides, the way ptpcheck layers CLI flags on top of an on-disk config.
func LoadConfig(cmd *cobra.Command) (client.Config, error) {
	cfg := client.DefaultConfig()
	if rootConfigFlag != "" {
		fileCfg, err := client.ReadConfig(rootConfigFlag)
		if err != nil {
			return client.Config{}, err
		}
		cfg = fileCfg
	}
	if cmd.Flags().Changed("server") {
		cfg.ServerIP = rootServerFlag
	}
	if cmd.Flags().Changed("local") {
		cfg.LocalIP = rootLocalFlag
	}
	if cmd.Flags().Changed("multicast") {
		cfg.UseMulticast = rootMulticast
	}
	if cmd.Flags().Changed("timeout") {
		cfg.ConnectTimeout = rootTimeout
	}
	if err := cfg.Validate(); err != nil {
		return client.Config{}, err
	}
	return cfg, nil
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
