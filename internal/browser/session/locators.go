// internal/browser/session/locators.go
package session

import (
	"fmt"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

// xpathSnapshot collects every node matching an XPath into an array.
const xpathSnapshot = `(function(xp) {
  const r = document.evaluate(xp, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
  const out = [];
  for (let i = 0; i < r.snapshotLength; i++) { out.push(r.snapshotItem(i)); }
  return out;
})(%s)`

// queryExpression compiles a locator into a script expression that evaluates to
// an array of matching elements in document order.
func queryExpression(loc engine.Locator) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	value := jsonEncode(loc.Value)

	switch loc.Strategy {
	case engine.StrategyID:
		return fmt.Sprintf(`Array.from(document.querySelectorAll('[id]')).filter(el => el.id === %s)`, value), nil
	case engine.StrategyCSS:
		return fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, value), nil
	case engine.StrategyTag:
		return fmt.Sprintf(`Array.from(document.getElementsByTagName(%s))`, value), nil
	case engine.StrategyXPath:
		return fmt.Sprintf(xpathSnapshot, value), nil
	case engine.StrategyText:
		return fmt.Sprintf(xpathSnapshot, jsonEncode(textXPath(loc.Value))), nil
	}
	return "", fmt.Errorf("unsupported locator strategy %q", loc.Strategy)
}

// textXPath matches the innermost elements whose normalized text equals text.
func textXPath(text string) string {
	lit := engine.XPathLiteral(text)
	return fmt.Sprintf("//*[normalize-space(.)=%s][not(.//*[normalize-space(.)=%s])]", lit, lit)
}
