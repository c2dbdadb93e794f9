// Package templates renders the HTML pages of the web server.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse}td,th{padding:.25rem .75rem;text-align:left;border-bottom:1px solid #e5e7eb}
.succeeded{color:#047857}.failed{color:#b91c1c}.running{color:#92400e}
.alert{padding:1rem;border:1px solid #fca5a5;background:#fef2f2}`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// RunPage shows one transfer run.
func RunPage(run core.RunRecord) templ.Component {
	return Layout("Run "+run.ID.String(), templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<h1>Run <code>%s</code></h1>", templ.EscapeString(run.ID.String()))
		fmt.Fprintf(&b, "<p class=\"%s\">%s</p>", string(run.Status), templ.EscapeString(string(run.Status)))
		b.WriteString("<table>")
		row(&b, "Spreadsheet", run.SpreadsheetID)
		row(&b, "Report", run.ReportID)
		row(&b, "Dataset", run.DatasetName)
		row(&b, "Dataset ID", run.DatasetID)
		row(&b, "Layout", run.Layout)
		row(&b, "Sink", run.Sink)
		row(&b, "Tables", fmt.Sprint(run.Tables))
		row(&b, "Rows", fmt.Sprint(run.Rows))
		row(&b, "Skipped sheets", strings.Join(run.Skipped, ", "))
		row(&b, "Schema faults", fmt.Sprint(run.SchemaFaults))
		row(&b, "Decode faults", fmt.Sprint(run.DecodeFaults))
		row(&b, "Started", run.StartedAt.Format(time.RFC3339))
		if run.FinishedAt != nil {
			row(&b, "Finished", run.FinishedAt.Format(time.RFC3339))
			row(&b, "Duration", run.Duration().Round(time.Millisecond).String())
		}
		b.WriteString("</table>")
		if run.ErrorCode != "" {
			fmt.Fprintf(&b, "<div class=\"alert\"><strong>%s</strong> %s</div>",
				templ.EscapeString(run.ErrorCode), templ.EscapeString(run.ErrorMessage))
		}
		_, err := io.WriteString(w, b.String())
		return err
	}))
}

// ErrorPage shows a user-facing error.
func ErrorPage(msg core.UserMessage) templ.Component {
	return Layout("Error", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<div class=\"alert\"><strong>%s</strong> %s <small>(Code: %s)</small></div>",
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	}))
}

func row(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>", templ.EscapeString(label), templ.EscapeString(value))
}
