package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
)

const (
	elementsPath  = "/elements"
	webTablesPath = "/webtables"
)

// ErrNoRecords is returned when an operation needs a row and the table has none.
var ErrNoRecords = errors.New("web table has no records")

var (
	tablesMenuItem   = engine.ByXPath("//span[text()='Web Tables']")
	tablesAdd        = engine.ByID("addNewRecordButton")
	tablesFirstName  = engine.ByID("firstName")
	tablesLastName   = engine.ByID("lastName")
	tablesEmail      = engine.ByID("userEmail")
	tablesAge        = engine.ByID("age")
	tablesSalary     = engine.ByID("salary")
	tablesDepartment = engine.ByID("department")
	tablesSubmit     = engine.ByID("submit")
	tablesEdit       = engine.ByCSS("span[title='Edit']")
	tablesDelete     = engine.ByCSS("span[title='Delete']")
	tablesModal      = engine.ByCSS(".modal-content")
)

// jsTableRows returns the cells of every row that carries a Delete action,
// which excludes the padding rows the table renders.
const jsTableRows = `
return Array.from(document.querySelectorAll("span[title='Delete']")).map(btn => {
  const row = btn.closest('.rt-tr') || btn.closest('tr');
  if (!row) { return []; }
  return Array.from(row.querySelectorAll('.rt-td, td')).map(td => td.innerText.trim());
});`

// WebTablesPage drives the editable records table.
type WebTablesPage struct {
	base
}

// Open reaches the table through the Elements menu, as a user would.
func (p *WebTablesPage) Open(ctx context.Context) error {
	if err := p.open(ctx, elementsPath); err != nil {
		return err
	}
	if err := p.eng.Click(ctx, tablesMenuItem); err != nil {
		return fmt.Errorf("opening web tables: %w", err)
	}
	return nil
}

// AddRecord opens the registration dialog, fills it with rec and submits.
func (p *WebTablesPage) AddRecord(ctx context.Context, rec fixtures.WebTableRecord) error {
	if err := p.eng.Click(ctx, tablesAdd); err != nil {
		return fmt.Errorf("adding record: %w", err)
	}
	if err := p.submitRecord(ctx, rec); err != nil {
		return fmt.Errorf("adding record: %w", err)
	}
	p.logger.Info("Added new record.", zap.String("email", rec.Email))
	return nil
}

func (p *WebTablesPage) submitRecord(ctx context.Context, rec fixtures.WebTableRecord) error {
	fields := []struct {
		loc   engine.Locator
		value string
	}{
		{tablesFirstName, rec.FirstName},
		{tablesLastName, rec.LastName},
		{tablesEmail, rec.Email},
		{tablesAge, strconv.Itoa(rec.Age)},
		{tablesSalary, strconv.Itoa(rec.Salary)},
		{tablesDepartment, rec.Department},
	}
	for _, f := range fields {
		if err := p.eng.Type(ctx, f.loc, f.value); err != nil {
			return err
		}
	}
	if err := p.eng.Click(ctx, tablesSubmit); err != nil {
		return err
	}
	return p.waitGone(ctx, "registration form to close", tablesModal)
}

// EditLastRecord replaces the contents of the last row with rec.
func (p *WebTablesPage) EditLastRecord(ctx context.Context, rec fixtures.WebTableRecord) error {
	if err := p.removeOverlays(ctx); err != nil {
		return err
	}
	ok, err := p.clickNth(ctx, tablesEdit, -1)
	if err != nil {
		return fmt.Errorf("editing last record: %w", err)
	}
	if !ok {
		return fmt.Errorf("editing last record: %w", ErrNoRecords)
	}
	if err := p.submitRecord(ctx, rec); err != nil {
		return fmt.Errorf("editing last record: %w", err)
	}
	p.logger.Info("Edited the last record.", zap.String("email", rec.Email))
	return nil
}

// DeleteLastRecord removes the last row.
func (p *WebTablesPage) DeleteLastRecord(ctx context.Context) error {
	if err := p.removeOverlays(ctx); err != nil {
		return err
	}
	before, err := p.RecordCount(ctx)
	if err != nil {
		return err
	}
	ok, err := p.clickNth(ctx, tablesDelete, -1)
	if err != nil {
		return fmt.Errorf("deleting last record: %w", err)
	}
	if !ok {
		return fmt.Errorf("deleting last record: %w", ErrNoRecords)
	}
	if err := p.waitCountBelow(ctx, before); err != nil {
		return fmt.Errorf("deleting last record: %w", err)
	}
	p.logger.Info("Deleted the last record.")
	return nil
}

// DeleteAll removes rows one at a time until none remain and returns how many
// were deleted. The loop gives up once it has clicked more times than there
// were rows plus maxExtraDeletes, so a table that keeps refilling cannot spin forever.
func (p *WebTablesPage) DeleteAll(ctx context.Context) (int, error) {
	const maxExtraDeletes = 5
	if err := p.removeOverlays(ctx); err != nil {
		return 0, err
	}
	initial, err := p.RecordCount(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for remaining := initial; remaining > 0; {
		if deleted >= initial+maxExtraDeletes {
			return deleted, fmt.Errorf("deleting all records: %d rows remain after %d deletions", remaining, deleted)
		}
		ok, err := p.clickNth(ctx, tablesDelete, 0)
		if err != nil {
			return deleted, fmt.Errorf("deleting all records: %w", err)
		}
		if !ok {
			break
		}
		if err := p.waitCountBelow(ctx, remaining); err != nil {
			return deleted, fmt.Errorf("deleting all records: %w", err)
		}
		deleted++
		if remaining, err = p.RecordCount(ctx); err != nil {
			return deleted, err
		}
	}
	p.logger.Info("No more records to delete.", zap.Int("deleted", deleted))
	return deleted, nil
}

func (p *WebTablesPage) waitCountBelow(ctx context.Context, n int) error {
	return p.eng.Wait(ctx, "row to disappear", func(ctx context.Context) (bool, error) {
		c, err := p.RecordCount(ctx)
		if err != nil {
			return false, err
		}
		return c < n, nil
	})
}

// CreateRecords adds every record in order.
func (p *WebTablesPage) CreateRecords(ctx context.Context, recs []fixtures.WebTableRecord) error {
	for i, rec := range recs {
		if err := p.AddRecord(ctx, rec); err != nil {
			return fmt.Errorf("record %d of %d: %w", i+1, len(recs), err)
		}
	}
	p.logger.Info("Created records dynamically.", zap.Int("count", len(recs)))
	return nil
}

// RecordCount returns the number of populated rows.
func (p *WebTablesPage) RecordCount(ctx context.Context) (int, error) {
	return p.eng.Count(ctx, tablesDelete)
}

// Records reads every populated row.
func (p *WebTablesPage) Records(ctx context.Context) ([]fixtures.WebTableRecord, error) {
	raw, err := p.eng.RunScript(ctx, jsTableRows)
	if err != nil {
		return nil, fmt.Errorf("reading table rows: %w", err)
	}
	var rows [][]string
	if err := jsonAPI.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding table rows: %w", err)
	}
	recs := make([]fixtures.WebTableRecord, 0, len(rows))
	for i, cells := range rows {
		rec, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// LastRecord reads the last populated row.
func (p *WebTablesPage) LastRecord(ctx context.Context) (fixtures.WebTableRecord, error) {
	recs, err := p.Records(ctx)
	if err != nil {
		return fixtures.WebTableRecord{}, err
	}
	if len(recs) == 0 {
		return fixtures.WebTableRecord{}, ErrNoRecords
	}
	return recs[len(recs)-1], nil
}

// parseRow decodes cells in table order: first name, last name, age, email,
// salary, department, then the action column.
func parseRow(cells []string) (fixtures.WebTableRecord, error) {
	if len(cells) < 6 {
		return fixtures.WebTableRecord{}, fmt.Errorf("expected at least 6 cells, got %d", len(cells))
	}
	age, err := strconv.Atoi(cells[2])
	if err != nil {
		return fixtures.WebTableRecord{}, fmt.Errorf("parsing age %q: %w", cells[2], err)
	}
	salary, err := strconv.Atoi(cells[4])
	if err != nil {
		return fixtures.WebTableRecord{}, fmt.Errorf("parsing salary %q: %w", cells[4], err)
	}
	return fixtures.WebTableRecord{
		FirstName:  cells[0],
		LastName:   cells[1],
		Age:        age,
		Email:      cells[3],
		Salary:     salary,
		Department: cells[5],
	}, nil
}
