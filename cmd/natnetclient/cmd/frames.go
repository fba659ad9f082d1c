package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/natnetgo/natnet/natnet/client"
	"github.com/natnetgo/natnet/natnet/natnetutil"
	"github.com/natnetgo/natnet/natnet/protocol"
)

var (
	framesMetricsPort int
	framesTable       bool
)

func init() {
	RootCmd.AddCommand(framesCmd)
	framesCmd.Flags().IntVar(&framesMetricsPort, "metrics-port", 0, "if set, serve Prometheus metrics on this port while streaming")
	framesCmd.Flags().BoolVar(&framesTable, "table", false, "render each frame's rigid bodies as a table instead of one summary line")
}

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Stream decoded FRAMEOFDATA until interrupted",
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

		var metrics *natnetutil.Metrics
		if framesMetricsPort != 0 {
			metrics = natnetutil.NewMetrics()
			go metrics.Serve(framesMetricsPort)
		}

		c.OnFrame().Subscribe(func(f protocol.DataFrame) {
			if metrics != nil {
				metrics.FramesReceived.Inc()
				metrics.RigidBodyCount.Set(float64(len(f.RigidBodies)))
				metrics.MarkerSetCount.Set(float64(len(f.MarkerSets)))
			}
			if framesTable {
				natnetutil.PrintRigidBodies(os.Stdout, f.RigidBodies)
				return
			}
			fmt.Printf("frame %d: %d marker sets, %d rigid bodies, t=%.4f\n",
				f.Prefix.FrameNumber, len(f.MarkerSets), len(f.RigidBodies), f.Suffix.Timestamp)
		})
		c.OnDescription().Subscribe(func(d protocol.DataDescriptions) {
			if metrics != nil {
				metrics.DescriptionsReceived.Inc()
			}
		})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := c.RunAsync(ctx); err != nil {
			log.Fatal(err)
		}
		<-ctx.Done()
		if err := c.StopAsync(); err != nil {
			log.Fatal(err)
		}
	},
}
