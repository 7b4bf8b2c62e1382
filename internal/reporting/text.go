package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"
)

func renderText(w io.Writer, reports []*Report) error {
	var b strings.Builder
	for _, rep := range reports {
		fmt.Fprintf(&b, "Run %s (seed %d)\n", rep.RunID, rep.Seed)
		for _, res := range rep.Results {
			fmt.Fprintf(&b, "  %-7s %-20s %s\n", strings.ToUpper(string(res.Status)), res.Scenario, res.Duration.Round(time.Millisecond))
			for _, step := range res.Steps {
				if step.Status == StatusPassed {
					continue
				}
				fmt.Fprintf(&b, "          - %s: %s", step.Name, step.Status)
				if step.Error != "" {
					fmt.Fprintf(&b, ": %s", step.Error)
				}
				b.WriteString("\n")
			}
			if res.Error != "" && len(res.Steps) == 0 {
				fmt.Fprintf(&b, "          %s\n", res.Error)
			}
		}
		s := rep.Summary()
		fmt.Fprintf(&b, "%d scenarios: %d passed, %d failed, %d skipped in %s\n",
			s.Total, s.Passed, s.Failed, s.Skipped, rep.Duration().Round(time.Millisecond))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
