package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/natnetgo/natnet/natnet/client"
	"github.com/natnetgo/natnet/natnet/version"
)

func init() {
	RootCmd.AddCommand(setVersionCmd)
}

var setVersionCmd = &cobra.Command{
	Use:   "set-version <major.minor>",
	Short: "Ask the server to switch NatNet wire versions (requires protocol >= 4, unicast)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		cfg, err := LoadConfig(cmd)
		if err != nil {
			log.Fatal(err)
		}

		desired, err := version.FromString(args[0])
		if err != nil {
			log.Fatalf("invalid version %q: %v", args[0], err)
		}

		c, err := client.Open(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()

		if err := c.SetProtocolVersion(desired); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("protocol version now %s\n", c.ProtocolVersion())
	},
}
