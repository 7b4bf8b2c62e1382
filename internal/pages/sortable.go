package pages

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
)

const sortablePath = "/sortable"

var (
	sortableListTab = engine.ByID("demo-tab-list")
	sortableItems   = engine.ByCSS("#demo-tabpane-list .list-group-item")
)

func sortableItem(text string) engine.Locator {
	return engine.ByXPath(fmt.Sprintf(
		"//div[@id='demo-tabpane-list']//div[contains(@class,'list-group-item')][normalize-space(.)=%s]",
		engine.XPathLiteral(text)))
}

// SortablePage drives the drag-and-drop list.
type SortablePage struct {
	base
}

func (p *SortablePage) Open(ctx context.Context) error {
	return p.open(ctx, sortablePath)
}

// ShowList selects the List tab.
func (p *SortablePage) ShowList(ctx context.Context) error {
	if err := p.eng.Click(ctx, sortableListTab); err != nil {
		return fmt.Errorf("switching to list view: %w", err)
	}
	p.logger.Info("Switched to List view.")
	return nil
}

// Items returns the list entries in display order.
func (p *SortablePage) Items(ctx context.Context) ([]string, error) {
	items, err := p.eng.Texts(ctx, sortableItems)
	if err != nil {
		return nil, fmt.Errorf("reading sortable items: %w", err)
	}
	return items, nil
}

// SortAscending drags entries until the list is in lexicographic order and
// returns the final order.
func (p *SortablePage) SortAscending(ctx context.Context) ([]string, error) {
	order, err := p.eng.SortByText(ctx, engine.SortSpec{
		Items:      sortableItems,
		ItemByText: sortableItem,
	})
	if err != nil {
		return nil, fmt.Errorf("sorting list: %w", err)
	}
	p.logger.Info("Items sorted in ascending order.", zap.Strings("order", order))
	return order, nil
}

// IsSorted reports whether the entries are currently in ascending order.
func (p *SortablePage) IsSorted(ctx context.Context) (bool, error) {
	items, err := p.Items(ctx)
	if err != nil {
		return false, err
	}
	return slices.IsSorted(items), nil
}
