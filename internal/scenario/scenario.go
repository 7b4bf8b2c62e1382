// Package scenario defines the suite's end-to-end scenarios and runs them,
// each on its own browser session.
package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
	"github.com/xkilldash9x/demoqa-e2e/internal/pages"
)

// Step is one named action of a scenario.
type Step struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Scenario is an ordered list of steps that share one session.
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	Steps       []Step
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// Env is what the steps of one scenario run against. It lives for exactly one
// scenario and is never shared.
type Env struct {
	Engine    *engine.Engine
	Pages     *pages.Set
	Data      *fixtures.Generator
	UploadDir string
	Logger    *zap.Logger

	// Values handed from one step to a later one.
	form     fixtures.PracticeForm
	rowCount int

	cleanups []func()
}

// Defer registers fn to run when the scenario ends, pass or fail.
func (e *Env) Defer(fn func()) {
	e.cleanups = append(e.cleanups, fn)
}

func (e *Env) close() {
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i]()
	}
	e.cleanups = nil
}

// Select picks scenarios from all by name, then narrows them to those carrying
// any of tags. No names means every scenario. Unknown names are an error.
func Select(all []Scenario, names, tags []string) ([]Scenario, error) {
	picked := all
	if len(names) > 0 {
		picked = make([]Scenario, 0, len(names))
		var unknown []string
		for _, name := range names {
			i := slices.IndexFunc(all, func(s Scenario) bool { return s.Name == name })
			if i < 0 {
				unknown = append(unknown, name)
				continue
			}
			picked = append(picked, all[i])
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown scenario(s): %s", strings.Join(unknown, ", "))
		}
	}
	if len(tags) == 0 {
		return picked, nil
	}
	var tagged []Scenario
	for _, s := range picked {
		if slices.ContainsFunc(tags, s.HasTag) {
			tagged = append(tagged, s)
		}
	}
	return tagged, nil
}
