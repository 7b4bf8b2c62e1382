package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const junitSuiteName = "demoqa-e2e"

// renderJUnit writes a <testsuites> document with one <testsuite> per run and
// one <testcase> per scenario, the layout CI servers expect.
func renderJUnit(w io.Writer, reports []*Report) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	suites := doc.CreateElement("testsuites")

	var total Summary
	var elapsed time.Duration
	for _, rep := range reports {
		s := rep.Summary()
		total.Total += s.Total
		total.Failed += s.Failed
		total.Skipped += s.Skipped
		elapsed += rep.Duration()

		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("name", junitSuiteName)
		suite.CreateAttr("id", rep.RunID)
		suite.CreateAttr("tests", strconv.Itoa(s.Total))
		suite.CreateAttr("failures", strconv.Itoa(s.Failed))
		suite.CreateAttr("errors", "0")
		suite.CreateAttr("skipped", strconv.Itoa(s.Skipped))
		suite.CreateAttr("time", seconds(rep.Duration()))
		suite.CreateAttr("timestamp", rep.StartedAt.UTC().Format(time.RFC3339))

		props := suite.CreateElement("properties")
		prop := props.CreateElement("property")
		prop.CreateAttr("name", "seed")
		prop.CreateAttr("value", strconv.FormatInt(rep.Seed, 10))

		for _, res := range rep.Results {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("name", res.Scenario)
			tc.CreateAttr("classname", junitSuiteName+"."+strings.ReplaceAll(res.Scenario, "-", "_"))
			tc.CreateAttr("time", seconds(res.Duration))

			switch res.Status {
			case StatusFailed:
				f := tc.CreateElement("failure")
				f.CreateAttr("message", res.Error)
				f.CreateAttr("type", "ScenarioFailure")
				f.SetText(stepTrace(res))
			case StatusSkipped:
				sk := tc.CreateElement("skipped")
				if res.Error != "" {
					sk.CreateAttr("message", res.Error)
				}
			}
		}
	}
	suites.CreateAttr("tests", strconv.Itoa(total.Total))
	suites.CreateAttr("failures", strconv.Itoa(total.Failed))
	suites.CreateAttr("skipped", strconv.Itoa(total.Skipped))
	suites.CreateAttr("time", seconds(elapsed))

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("writing junit xml: %w", err)
	}
	return nil
}

func stepTrace(res Result) string {
	var b strings.Builder
	for _, step := range res.Steps {
		fmt.Fprintf(&b, "%s: %s", step.Name, step.Status)
		if step.Error != "" {
			fmt.Fprintf(&b, " (%s)", step.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
