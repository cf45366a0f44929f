package startup

import (
	"encoding/json"
	"fmt"
	"io"
)

// renderJSON writes the result as one machine-parsable document
func renderJSON(w io.Writer, result Result) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

// renderText writes a category-by-category pass/fail summary followed by
// blockers, errors, warnings, and the final health score.
func renderText(w io.Writer, result Result) {
	fmt.Fprintln(w, "Configuration validation")
	fmt.Fprintln(w)

	for _, category := range result.Categories {
		switch {
		case category.Skipped:
			fmt.Fprintf(w, "  [skip] %s\n", category.Name)
		case category.Passed:
			fmt.Fprintf(w, "  [pass] %s\n", category.Name)
		default:
			fmt.Fprintf(w, "  [FAIL] %s\n", category.Name)
		}
	}

	if len(result.Blockers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Blockers:")
		for _, blocker := range result.Blockers {
			fmt.Fprintf(w, "  - %s\n", blocker)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Health: %s (%.1f/100)\n", result.HealthStatus, result.HealthScore)
	if result.Success {
		fmt.Fprintln(w, "Result: PASS")
	} else {
		fmt.Fprintln(w, "Result: FAIL")
	}
}
