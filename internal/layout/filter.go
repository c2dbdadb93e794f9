package layout

import (
	"fmt"

	"github.com/hashicorp/go-bexpr"
)

// SheetFilter selects which sheets of a spreadsheet become tables. The
// expression sees the sheet's Title and zero-based Index, for example
//
//	Title matches "^Q[1-4] "
//	Title != "Notes" and Index != 0
type SheetFilter struct {
	expr string
	eval *bexpr.Evaluator
}

// CompileSheetFilter parses expr. An empty expression matches every sheet.
func CompileSheetFilter(expr string) (*SheetFilter, error) {
	if expr == "" {
		return &SheetFilter{}, nil
	}
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("error parsing sheet filter '%s': %w", expr, err)
	}
	return &SheetFilter{expr: expr, eval: eval}, nil
}

// Match reports whether the sheet passes the filter.
func (f *SheetFilter) Match(title string, index int) (bool, error) {
	if f == nil || f.eval == nil {
		return true, nil
	}
	ok, err := f.eval.Evaluate(map[string]any{"Title": title, "Index": index})
	if err != nil {
		return false, fmt.Errorf("error evaluating sheet filter '%s' on %q: %w", f.expr, title, err)
	}
	return ok, nil
}

// String returns the source expression.
func (f *SheetFilter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}
