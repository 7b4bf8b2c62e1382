package scenario

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
	"github.com/xkilldash9x/demoqa-e2e/internal/pages"
)

const (
	// progressTarget is the percentage the progress scenario stops the bar at.
	progressTarget = 24
	// bulkRecords is how many generated rows the bulk scenario adds.
	bulkRecords = 12
)

// Registry returns every scenario of the suite in its canonical order.
func Registry() []Scenario {
	return []Scenario{
		practiceForm(),
		webTablesCRUD(),
		webTablesBulk(),
		webTablesPurge(),
		progressBar(),
		sortable(),
		browserWindow(pages.InteractionWindow, "browser-windows", "Open a new window, verify its heading and close it."),
		browserWindow(pages.InteractionTab, "browser-tabs", "Open a new tab, verify its heading and close it."),
	}
}

func practiceForm() Scenario {
	return Scenario{
		Name:        "practice-form",
		Description: "Fill the registration form with random data, upload a picture and submit.",
		Tags:        []string{"forms", "smoke"},
		Steps: []Step{
			{"open practice form", func(ctx context.Context, env *Env) error {
				return env.Pages.PracticeForm.Open(ctx)
			}},
			{"fill form with random data", func(ctx context.Context, env *Env) error {
				env.form = env.Data.PracticeForm()
				return env.Pages.PracticeForm.Fill(ctx, env.form)
			}},
			{"upload picture", func(ctx context.Context, env *Env) error {
				path, cleanup, err := fixtures.UploadFile(env.UploadDir)
				if err != nil {
					return err
				}
				env.Defer(cleanup)
				return env.Pages.PracticeForm.Upload(ctx, path)
			}},
			{"submit", func(ctx context.Context, env *Env) error {
				return env.Pages.PracticeForm.Submit(ctx)
			}},
			{"verify confirmation", func(ctx context.Context, env *Env) error {
				if !env.Pages.PracticeForm.IsSubmissionPopupDisplayed(ctx) {
					return fmt.Errorf("confirmation dialog not displayed")
				}
				values, err := env.Pages.PracticeForm.SubmittedValues(ctx)
				if err != nil {
					return err
				}
				if got, want := values["Student Name"], env.form.FullName(); got != want {
					return fmt.Errorf("confirmation shows student %q, want %q", got, want)
				}
				return nil
			}},
			{"close confirmation", func(ctx context.Context, env *Env) error {
				return env.Pages.PracticeForm.ClosePopup(ctx)
			}},
		},
	}
}

func openTables(ctx context.Context, env *Env) error {
	return env.Pages.WebTables.Open(ctx)
}

func countRows(ctx context.Context, env *Env) error {
	n, err := env.Pages.WebTables.RecordCount(ctx)
	env.rowCount = n
	return err
}

func expectRows(want func(env *Env) int) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		n, err := env.Pages.WebTables.RecordCount(ctx)
		if err != nil {
			return err
		}
		if w := want(env); n != w {
			return fmt.Errorf("table has %d rows, want %d", n, w)
		}
		return nil
	}
}

func expectLast(want fixtures.WebTableRecord) func(ctx context.Context, env *Env) error {
	return func(ctx context.Context, env *Env) error {
		got, err := env.Pages.WebTables.LastRecord(ctx)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("last row is %+v, want %+v", got, want)
		}
		return nil
	}
}

func webTablesCRUD() Scenario {
	return Scenario{
		Name:        "web-tables-crud",
		Description: "Add a record, edit it and delete it again.",
		Tags:        []string{"tables", "smoke"},
		Steps: []Step{
			{"open web tables", openTables},
			{"count rows", countRows},
			{"add record", func(ctx context.Context, env *Env) error {
				return env.Pages.WebTables.AddRecord(ctx, fixtures.NewRecord())
			}},
			{"verify added record", expectLast(fixtures.NewRecord())},
			{"edit last record", func(ctx context.Context, env *Env) error {
				return env.Pages.WebTables.EditLastRecord(ctx, fixtures.UpdatedRecord())
			}},
			{"verify edited record", expectLast(fixtures.UpdatedRecord())},
			{"delete last record", func(ctx context.Context, env *Env) error {
				return env.Pages.WebTables.DeleteLastRecord(ctx)
			}},
			{"verify row count restored", expectRows(func(env *Env) int { return env.rowCount })},
		},
	}
}

func webTablesBulk() Scenario {
	return Scenario{
		Name:        "web-tables-bulk",
		Description: "Create a dozen records, then delete every row.",
		Tags:        []string{"tables"},
		Steps: []Step{
			{"open web tables", openTables},
			{"count rows", countRows},
			{"create records", func(ctx context.Context, env *Env) error {
				return env.Pages.WebTables.CreateRecords(ctx, fixtures.Records(bulkRecords))
			}},
			{"verify records created", expectRows(func(env *Env) int { return env.rowCount + bulkRecords })},
			{"delete all records", deleteAll},
			{"verify table empty", expectRows(func(*Env) int { return 0 })},
		},
	}
}

func deleteAll(ctx context.Context, env *Env) error {
	_, err := env.Pages.WebTables.DeleteAll(ctx)
	return err
}

func webTablesPurge() Scenario {
	return Scenario{
		Name:        "web-tables-purge",
		Description: "Add John Doe, then delete every row until the table is empty.",
		Tags:        []string{"tables", "smoke"},
		Steps: []Step{
			{"open web tables", openTables},
			{"add record", func(ctx context.Context, env *Env) error {
				return env.Pages.WebTables.AddRecord(ctx, fixtures.NewRecord())
			}},
			{"delete all records", deleteAll},
			{"verify table empty", expectRows(func(*Env) int { return 0 })},
		},
	}
}

func progressBar() Scenario {
	return Scenario{
		Name:        "progress-bar",
		Description: fmt.Sprintf("Start the progress bar and stop it at no more than %d%%.", progressTarget),
		Tags:        []string{"widgets"},
		Steps: []Step{
			{"open progress bar", func(ctx context.Context, env *Env) error {
				return env.Pages.ProgressBar.Open(ctx)
			}},
			{"start", func(ctx context.Context, env *Env) error {
				return env.Pages.ProgressBar.Start(ctx)
			}},
			{fmt.Sprintf("stop at %d%%", progressTarget), func(ctx context.Context, env *Env) error {
				_, err := env.Pages.ProgressBar.WaitForValue(ctx, progressTarget)
				return err
			}},
			{"verify value", func(ctx context.Context, env *Env) error {
				v, err := env.Pages.ProgressBar.Value(ctx)
				if err != nil {
					return err
				}
				if v > progressTarget {
					return fmt.Errorf("progress %d%% exceeds target %d%%", v, progressTarget)
				}
				return nil
			}},
			{"reset", func(ctx context.Context, env *Env) error {
				return env.Pages.ProgressBar.Reset(ctx)
			}},
		},
	}
}

func sortable() Scenario {
	return Scenario{
		Name:        "sortable",
		Description: "Drag the list entries into ascending order.",
		Tags:        []string{"interactions"},
		Steps: []Step{
			{"open sortable", func(ctx context.Context, env *Env) error {
				return env.Pages.Sortable.Open(ctx)
			}},
			{"show list", func(ctx context.Context, env *Env) error {
				return env.Pages.Sortable.ShowList(ctx)
			}},
			{"sort ascending", func(ctx context.Context, env *Env) error {
				_, err := env.Pages.Sortable.SortAscending(ctx)
				return err
			}},
			{"verify order", func(ctx context.Context, env *Env) error {
				ok, err := env.Pages.Sortable.IsSorted(ctx)
				if err != nil {
					return err
				}
				if !ok {
					items, _ := env.Pages.Sortable.Items(ctx)
					return fmt.Errorf("list is not sorted: %v", items)
				}
				return nil
			}},
		},
	}
}

func browserWindow(kind pages.Interaction, name, desc string) Scenario {
	return Scenario{
		Name:        name,
		Description: desc,
		Tags:        []string{"windows"},
		Steps: []Step{
			{"open browser windows", func(ctx context.Context, env *Env) error {
				return env.Pages.BrowserWindows.Open(ctx)
			}},
			{fmt.Sprintf("verify new %s", kind), func(ctx context.Context, env *Env) error {
				return env.Pages.BrowserWindows.VerifyInteraction(ctx, kind, pages.SampleHeading)
			}},
		},
	}
}
