// internal/browser/session/locators_test.go
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

func TestQueryExpression(t *testing.T) {
	tests := []struct {
		name string
		loc  engine.Locator
		want []string
	}{
		{"ID", engine.ByID("firstName"), []string{`el.id === "firstName"`}},
		{"CSS", engine.ByCSS(".rt-tbody .rt-tr-group"), []string{`document.querySelectorAll(".rt-tbody .rt-tr-group")`}},
		{"Tag", engine.ByTag("iframe"), []string{`getElementsByTagName("iframe")`}},
		{"XPath", engine.ByXPath("//span[text()='Web Tables']"), []string{"ORDERED_NODE_SNAPSHOT_TYPE", `"//span[text()='Web Tables']"`}},
		{"Text", engine.ByText("Submit"), []string{"ORDERED_NODE_SNAPSHOT_TYPE", "normalize-space(.)='Submit'"}},
		{"QuotesAreEscaped", engine.ByCSS(`input[name="q"]`), []string{`"input[name=\"q\"]"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := queryExpression(tt.loc)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, expr, w)
			}
		})
	}

	t.Run("InvalidLocator", func(t *testing.T) {
		_, err := queryExpression(engine.Locator{Strategy: "name", Value: "q"})
		assert.ErrorContains(t, err, "unknown locator strategy")

		_, err = queryExpression(engine.ByCSS("  "))
		assert.Error(t, err)
	})
}

func TestTextXPath(t *testing.T) {
	assert.Equal(t,
		`//*[normalize-space(.)="It's"][not(.//*[normalize-space(.)="It's"])]`,
		textXPath("It's"))
}
