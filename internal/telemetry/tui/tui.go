// Package tui renders a live terminal dashboard over a running actor
// system: each actor's state and user/system queue lengths, and the
// scheduler's tick health and drift, refreshed on a short ticker and fed by the
// system's own metrics snapshots rather than a bespoke polling protocol.
package tui

import (
	"context"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/webitel/fraktor-go/internal/actor"
)

const refreshInterval = 500 * time.Millisecond

// Run initializes the terminal UI, renders until ctx is cancelled or the
// user presses q/Ctrl-C, then restores the terminal. Callers own ctx's
// lifetime; Run never outlives it.
func Run(ctx context.Context, sys *actor.System) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("tui: init: %w", err)
	}
	defer ui.Close()

	actorsTable := widgets.NewTable()
	actorsTable.Title = "Actors"
	actorsTable.RowSeparator = false
	actorsTable.SetRect(0, 0, 80, 16)

	tickGauge := widgets.NewGauge()
	tickGauge.Title = "Scheduler tick health"
	tickGauge.SetRect(0, 16, 80, 19)

	driftSpark := widgets.NewSparkline()
	driftSpark.LineColor = ui.ColorYellow
	driftGroup := widgets.NewSparklineGroup(driftSpark)
	driftGroup.Title = "Tick drift (ns)"
	driftGroup.SetRect(0, 19, 80, 27)

	render := func() {
		actorsTable.Rows = renderActorRows(sys)
		tickGauge.Percent = tickHealthPercent(sys)
		driftSpark.Data = appendBounded(driftSpark.Data, float64(sys.Scheduler().TickMetrics().Drift))
		ui.Render(actorsTable, tickGauge, driftGroup)
	}
	render()

	events := ui.PollEvents()
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				render()
			}
		case <-ticker.C:
			render()
		}
	}
}

func renderActorRows(sys *actor.System) [][]string {
	rows := [][]string{{"path", "state", "user", "system", "children"}}
	for _, info := range sys.Cells() {
		rows = append(rows, []string{
			info.Path,
			info.Lifecycle.String(),
			fmt.Sprintf("%d", info.UserLen),
			fmt.Sprintf("%d", info.SystemLen),
			fmt.Sprintf("%d", info.ChildCount),
		})
	}
	return rows
}

func tickHealthPercent(sys *actor.System) int {
	metrics := sys.Scheduler().TickMetrics()
	if metrics.TicksPerSec <= 0 {
		return 0
	}
	pct := int(metrics.TicksPerSec)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func appendBounded(data []float64, v float64) []float64 {
	const max = 80
	data = append(data, v)
	if len(data) > max {
		data = data[len(data)-max:]
	}
	return data
}
