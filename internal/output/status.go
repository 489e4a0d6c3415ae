package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// PrettyDemoStatus renders the demo workload progress line.
func PrettyDemoStatus(done, total uint64, rate uint64) string {
	pct := 0.0
	if total > 0 {
		pct = float64(done) * 100. / float64(total)
	}

	return fmt.Sprintf("\r%-50s %-20s",
		fmt.Sprintf("Workload progress: [%s] %6.2f%%", ProgressBar(int(pct), 40), pct),
		fmt.Sprintf("Iterations/s: %6d", rate),
	)
}
