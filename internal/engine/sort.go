package engine

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// SortSpec describes a live list to be re-ordered by drag and drop.
type SortSpec struct {
	// Items matches every entry of the list in document order.
	Items Locator
	// ItemByText locates the single entry with the given text.
	ItemByText func(text string) Locator
	// Less defines the target order. Nil means lexicographic.
	Less func(a, b string) bool
	// MaxSteps bounds the number of drags. Zero means twice the list length.
	MaxSteps int
}

// SortByText drags entries of a live list until its order matches spec.Less.
// Each step re-reads the whole list, since any drag may re-render every node,
// locates the first misplaced entry by its text and drops it onto the entry
// currently occupying its target index. It returns the final order, or a
// *ConvergenceError once the step budget is spent.
func (e *Engine) SortByText(ctx context.Context, spec SortSpec) ([]string, error) {
	if spec.ItemByText == nil {
		return nil, &ActionError{Op: "sort", Locator: spec.Items, Kind: ErrDriver, Cause: errors.New("SortSpec.ItemByText is required")}
	}
	less := spec.Less
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}

	budget := spec.MaxSteps
	for step := 0; ; step++ {
		handles, texts, err := e.readSequenceStable(ctx, spec.Items)
		if err != nil {
			return nil, err
		}
		want := slices.Clone(texts)
		slices.SortStableFunc(want, func(a, b string) int {
			switch {
			case less(a, b):
				return -1
			case less(b, a):
				return 1
			}
			return 0
		})
		if budget <= 0 {
			budget = 2 * len(texts)
		}

		idx := firstMismatch(texts, want)
		if idx < 0 {
			e.logger.Debug("List sorted", zap.Int("steps", step), zap.Strings("order", texts))
			return texts, nil
		}
		if step >= budget {
			return nil, &ConvergenceError{Want: want, Got: texts, Steps: step}
		}

		target := spec.ItemByText(want[idx])
		src, err := e.waitPresent(ctx, "sort", target, e.policy)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("Moving list item",
			zap.String("text", want[idx]),
			zap.Int("to_index", idx),
			zap.Int("step", step+1),
		)
		if err := e.driver.DragAndDrop(ctx, src, handles[idx]); err != nil {
			if errors.Is(err, ErrStaleElement) {
				// The list re-rendered under us; the next pass re-reads it.
				continue
			}
			return nil, e.driverError("drag_and_drop", target, err)
		}
	}
}

// readSequenceStable waits until one full pass over the list completes without
// hitting a detached node.
func (e *Engine) readSequenceStable(ctx context.Context, loc Locator) ([]Element, []string, error) {
	var handles []Element
	var texts []string
	err := e.poll(ctx, e.policy, func(ctx context.Context) (bool, error) {
		h, t, err := e.readSequence(ctx, loc)
		if err != nil {
			return false, absorb(err)
		}
		handles, texts = h, t
		return true, nil
	})
	if err != nil {
		return nil, nil, e.waitFailure("read_list", loc, err, false)
	}
	return handles, texts, nil
}

// readSequence reads every match of loc with its trimmed text. Entries with empty
// text are skipped, keeping handles and texts index-aligned.
func (e *Engine) readSequence(ctx context.Context, loc Locator) ([]Element, []string, error) {
	els, err := e.driver.FindElements(ctx, loc)
	if err != nil {
		return nil, nil, err
	}
	handles := make([]Element, 0, len(els))
	texts := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			return nil, nil, err
		}
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		handles = append(handles, el)
		texts = append(texts, t)
	}
	return handles, texts, nil
}

func firstMismatch(got, want []string) int {
	for i := range got {
		if got[i] != want[i] {
			return i
		}
	}
	return -1
}
