package natnetutil

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/natnetgo/natnet/natnet/protocol"
)

// PrintRigidBodies renders one frame's rigid bodies as a table, the way
// ptpcheck's sources command renders a unicast master table.
func PrintRigidBodies(w io.Writer, bodies []protocol.RigidBody) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"id", "x", "y", "z", "qx", "qy", "qz", "qw", "tracked"})
	for _, rb := range bodies {
		tracked := "?"
		if rb.TrackingValid != nil {
			tracked = fmt.Sprintf("%v", *rb.TrackingValid)
		}
		table.Append([]string{
			fmt.Sprintf("%d", rb.ID),
			fmt.Sprintf("%.4f", rb.Position[0]),
			fmt.Sprintf("%.4f", rb.Position[1]),
			fmt.Sprintf("%.4f", rb.Position[2]),
			fmt.Sprintf("%.4f", rb.Orientation[0]),
			fmt.Sprintf("%.4f", rb.Orientation[1]),
			fmt.Sprintf("%.4f", rb.Orientation[2]),
			fmt.Sprintf("%.4f", rb.Orientation[3]),
			tracked,
		})
	}
	table.Render()
}

// PrintMarkerSets renders the marker-set section of a frame.
func PrintMarkerSets(w io.Writer, sets []protocol.MarkerSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"name", "marker count"})
	for _, s := range sets {
		table.Append([]string{s.ModelName, fmt.Sprintf("%d", len(s.Positions))})
	}
	table.Render()
}
