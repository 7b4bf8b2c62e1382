// File: internal/engine/locator.go
package engine

import (
	"fmt"
	"strings"
)

// Strategy names how a Locator value is interpreted by the driver.
type Strategy string

const (
	StrategyID    Strategy = "id"
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
	StrategyTag   Strategy = "tag"
	// StrategyText matches the innermost elements whose whitespace-normalized
	// text equals the value.
	StrategyText Strategy = "text"
)

// Locator is an immutable (strategy, value) pair describing how to find an element.
// Locators are built at call sites and passed by value.
type Locator struct {
	Strategy Strategy
	Value    string
}

func ByID(id string) Locator        { return Locator{Strategy: StrategyID, Value: id} }
func ByCSS(selector string) Locator { return Locator{Strategy: StrategyCSS, Value: selector} }
func ByXPath(expr string) Locator   { return Locator{Strategy: StrategyXPath, Value: expr} }
func ByTag(name string) Locator     { return Locator{Strategy: StrategyTag, Value: name} }
func ByText(text string) Locator    { return Locator{Strategy: StrategyText, Value: text} }

// IsZero reports whether the locator was never set.
func (l Locator) IsZero() bool {
	return l.Strategy == "" && l.Value == ""
}

// String renders the locator as "strategy=value" for logs and failure reports.
func (l Locator) String() string {
	if l.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// Validate rejects locators a driver could never resolve.
func (l Locator) Validate() error {
	switch l.Strategy {
	case StrategyID, StrategyCSS, StrategyXPath, StrategyTag, StrategyText:
	default:
		return fmt.Errorf("unknown locator strategy %q", l.Strategy)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("locator %s has an empty value", l.Strategy)
	}
	return nil
}

// XPathLiteral quotes s for use inside an XPath expression. XPath 1.0 has no
// escape sequences, so values containing both quote kinds are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
