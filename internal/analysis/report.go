package analysis

import (
	"fmt"
	"strings"
)

// RenderText renders run statistics as the plain-text report the
// analyze command prints.
func RenderText(rs RunStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s: %d node(s), final clock drift %d\n", rs.RunID, len(rs.Nodes), rs.ClockDrift)
	for _, n := range rs.Nodes {
		fmt.Fprintf(&b, "\nMachine %d\n", n.NodeID)
		fmt.Fprintf(&b, "  events:        %d (%.2f/s over %s)\n", n.Events, n.EventsPerSecond, n.Duration)
		fmt.Fprintf(&b, "  mix:           %d internal, %d send, %d receive\n", n.Internal, n.Sends, n.Receives)
		fmt.Fprintf(&b, "  final clock:   %d\n", n.FinalClock)
		fmt.Fprintf(&b, "  clock jumps:   mean %.2f, max %d\n", n.MeanJump, n.MaxJump)
		fmt.Fprintf(&b, "  queue length:  mean %.2f, max %d\n", n.MeanQueueLen, n.MaxQueueLen)
	}
	return b.String()
}
