package cmd

import (
	"fmt"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/natnetgo/natnet/natnet/client"
)

func init() {
	RootCmd.AddCommand(connectCmd)
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Perform the NatNet handshake and print SERVERINFO",
	Run: func(cmd *cobra.Command, _ []string) {
		ConfigureVerbosity()

		cfg, err := LoadConfig(cmd)
		if err != nil {
			log.Fatal(err)
		}

		c, err := client.Open(cfg)
		if err != nil {
			fmt.Println(color.RedString("[FAIL]"), err)
			return
		}
		defer c.Close()

		info := c.ServerInfo()
		fmt.Println(color.GreenString("[ OK ]"), "connected")
		fmt.Printf("  application:      %s\n", info.ApplicationName)
		fmt.Printf("  server version:   %s\n", info.ServerVersion)
		fmt.Printf("  protocol version: %s\n", info.NatNetProtocolVersion)
		fmt.Printf("  can change protocol version: %v\n", c.CanChangeProtocolVersion())
	},
}
