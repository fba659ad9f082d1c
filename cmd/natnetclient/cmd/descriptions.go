package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/natnetgo/natnet/natnet/client"
	"github.com/natnetgo/natnet/natnet/protocol"
)

var descriptionsTimeout time.Duration

func init() {
	RootCmd.AddCommand(descriptionsCmd)
	descriptionsCmd.Flags().DurationVar(&descriptionsTimeout, "wait", 5*time.Second, "how long to wait for a MODELDEF after requesting one")
}

var descriptionsCmd = &cobra.Command{
	Use:   "descriptions",
	Short: "Request MODELDEF and print the scene's static description",
	Run: func(cmd *cobra.Command, _ []string) {
		ConfigureVerbosity()

		cfg, err := LoadConfig(cmd)
		if err != nil {
			log.Fatal(err)
		}

		c, err := client.Open(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()

		received := make(chan protocol.DataDescriptions, 1)
		token := c.OnDescription().Subscribe(func(d protocol.DataDescriptions) {
			select {
			case received <- d:
			default:
			}
		})
		defer c.OnDescription().Unsubscribe(token)

		if err := c.RequestModelDef(); err != nil {
			log.Fatal(err)
		}

		deadline := time.Now().Add(descriptionsTimeout)
		for time.Now().Before(deadline) {
			select {
			case d := <-received:
				printDescriptions(d)
				return
			default:
			}
			if err := c.UpdateSync(); err != nil {
				log.Fatal(err)
			}
			time.Sleep(20 * time.Millisecond)
		}
		fmt.Fprintln(os.Stderr, "timed out waiting for MODELDEF")
		os.Exit(1)
	},
}

func printDescriptions(d protocol.DataDescriptions) {
	fmt.Printf("marker sets: %d, rigid bodies: %d, skeletons: %d, force plates: %d, devices: %d, cameras: %d\n",
		len(d.MarkerSets), len(d.RigidBodies), len(d.Skeletons), len(d.ForcePlates), len(d.Devices), len(d.Cameras))
	for _, rb := range d.RigidBodies {
		name := "<unnamed>"
		if rb.Name != nil {
			name = *rb.Name
		}
		fmt.Printf("  rigid body %d %q: %d markers\n", rb.ID, name, len(rb.Markers))
	}
}
