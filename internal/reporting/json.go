package reporting

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonReport struct {
	*Report
	Summary Summary `json:"summary"`
}

// renderJSON writes a single object for one report and an array otherwise.
func renderJSON(w io.Writer, reports []*Report) error {
	out := make([]jsonReport, len(reports))
	for i, r := range reports {
		out[i] = jsonReport{Report: r, Summary: r.Summary()}
	}

	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(out) == 1 {
		return enc.Encode(out[0])
	}
	return enc.Encode(out)
}
