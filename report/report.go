package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/TFMV/masquerade/metrics"
)

// -----------------------------
// Report Generator Interfaces
// -----------------------------

// ReportGenerator defines the methods for generating reports.
type ReportGenerator interface {
	GenerateRunReport(run metrics.RunReport) ([]byte, error)
	GenerateAlertNotification(run metrics.RunReport) ([]byte, error)
	SaveReportToFile(run metrics.RunReport, filePath string) error
}

// -----------------------------
// JSON Report Generator
// -----------------------------

// JSONReportGenerator generates JSON reports.
type JSONReportGenerator struct{}

// jsonReport adds computed totals to the serialized run.
type jsonReport struct {
	metrics.RunReport
	Totals metrics.Totals `json:"totals"`
}

// GenerateRunReport serializes the RunReport to JSON.
func (j *JSONReportGenerator) GenerateRunReport(run metrics.RunReport) ([]byte, error) {
	return json.MarshalIndent(jsonReport{RunReport: run, Totals: run.Totals()}, "", "  ")
}

// GenerateAlertNotification generates an alert message in JSON format.
func (j *JSONReportGenerator) GenerateAlertNotification(run metrics.RunReport) ([]byte, error) {
	alert := map[string]interface{}{
		"alert":     "Anonymization Incomplete",
		"run_id":    run.Metadata.RunID,
		"tables":    failedTables(run),
		"message":   "Some rule sets did not complete successfully.",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return json.MarshalIndent(alert, "", "  ")
}

// SaveReportToFile saves the JSON report to a file.
func (j *JSONReportGenerator) SaveReportToFile(run metrics.RunReport, filePath string) error {
	data, err := j.GenerateRunReport(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// -----------------------------
// HTML Report Generator
// -----------------------------

// HTMLReportGenerator generates HTML reports.
type HTMLReportGenerator struct{}

// HTML template for the report.
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Anonymization Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f4f4f4; }
        .status-pass { color: green; }
        .status-fail { color: red; }
    </style>
</head>
<body>
    <h1>Anonymization Report</h1>
    <p><strong>Run:</strong> {{.Metadata.RunID}}</p>
    <p><strong>Driver:</strong> {{.Metadata.Driver}} ({{.Metadata.Dialect}})</p>
    <p><strong>Schema:</strong> {{.Metadata.Schema}}</p>
    <p><strong>Page Size:</strong> {{.Metadata.Limit}}</p>
    <p><strong>Dry Run:</strong> {{.Metadata.DryRun}}</p>
    <p><strong>Started:</strong> {{.Metadata.StartTime}}</p>

    <h2>Rule Sets</h2>
    <table>
        <tr>
            <th>Table</th>
            <th>Columns</th>
            <th>Rows Processed</th>
            <th>Rows Updated</th>
            <th>Rows Failed</th>
            <th>Duration</th>
            <th>Status</th>
        </tr>
        {{range .RuleSets}}
        <tr>
            <td>{{.Table}}</td>
            <td>{{join .Columns}}</td>
            <td>{{.RowsProcessed}}</td>
            <td>{{.RowsUpdated}}</td>
            <td>{{.RowsFailed}}</td>
            <td>{{.Duration}}</td>
            <td class="{{if .Failed}}status-fail{{else}}status-pass{{end}}">{{.Status}}</td>
        </tr>
        {{end}}
    </table>

    <h2>First Errors</h2>
    <table>
        <tr>
            <th>Table</th>
            <th>Class</th>
            <th>Count</th>
            <th>First Message</th>
        </tr>
        {{range $s := .RuleSets}}{{range $class := $s.ErrorClasses}}
        <tr>
            <td>{{$s.Table}}</td>
            <td>{{$class}}</td>
            <td>{{index $s.ErrorCounts $class}}</td>
            <td>{{index $s.FirstErrors $class}}</td>
        </tr>
        {{end}}{{end}}
    </table>

    {{with .Totals}}
    <h2>Totals</h2>
    <p><strong>Rows Processed:</strong> {{.RowsProcessed}}</p>
    <p><strong>Rows Updated:</strong> {{.RowsUpdated}}</p>
    <p><strong>Rows Failed:</strong> {{.RowsFailed}}</p>
    <p><strong>Failed Rule Sets:</strong> {{.FailedSets}}</p>
    {{end}}

    <footer>
        <p>Generated on {{.Metadata.EndTime}}</p>
    </footer>
</body>
</html>
`

var tmpl = template.Must(template.New("report").
	Funcs(template.FuncMap{"join": func(s []string) string { return strings.Join(s, ", ") }}).
	Parse(htmlTemplate))

// GenerateRunReport generates an HTML report from the run.
func (h *HTMLReportGenerator) GenerateRunReport(run metrics.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, run); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateAlertNotification generates an HTML alert.
func (h *HTMLReportGenerator) GenerateAlertNotification(run metrics.RunReport) ([]byte, error) {
	alertHTML := fmt.Sprintf(
		`<html><body><h3>Anonymization Incomplete</h3><p>Rule sets failed in run %s: %s.</p></body></html>`,
		template.HTMLEscapeString(run.Metadata.RunID),
		template.HTMLEscapeString(strings.Join(failedTables(run), ", ")),
	)
	return []byte(alertHTML), nil
}

// SaveReportToFile saves the HTML report to a file.
func (h *HTMLReportGenerator) SaveReportToFile(run metrics.RunReport, filePath string) error {
	data, err := h.GenerateRunReport(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// SaveReports saves the JSON and HTML reports. An empty path skips that report.
func SaveReports(run metrics.RunReport, jsonPath, htmlPath string) error {
	if jsonPath != "" {
		jsonGen := JSONReportGenerator{}
		if err := jsonGen.SaveReportToFile(run, jsonPath); err != nil {
			return fmt.Errorf("save JSON report: %w", err)
		}
	}
	if htmlPath != "" {
		htmlGen := HTMLReportGenerator{}
		if err := htmlGen.SaveReportToFile(run, htmlPath); err != nil {
			return fmt.Errorf("save HTML report: %w", err)
		}
	}
	return nil
}

// ReportFromFilePath loads a JSON report.
func ReportFromFilePath(filePath string) (metrics.RunReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return metrics.RunReport{}, err
	}
	var report metrics.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return metrics.RunReport{}, err
	}
	return report, nil
}

// -----------------------------
// Text Summary
// -----------------------------

// WriteSummary prints one line per rule set followed by the first error of
// each failure class.
func WriteSummary(w io.Writer, run metrics.RunReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tPROCESSED\tUPDATED\tFAILED\tDURATION\tSTATUS")
	for _, s := range run.RuleSets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			s.Table, s.RowsProcessed, s.RowsUpdated, s.RowsFailed, s.Duration.Round(time.Millisecond), s.Status)
	}
	t := run.Totals()
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%s\t%d failed\n",
		t.RowsProcessed, t.RowsUpdated, t.RowsFailed, run.Metadata.Duration.Round(time.Millisecond), t.FailedSets)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range run.RuleSets {
		for _, class := range s.ErrorClasses() {
			if _, err := fmt.Fprintf(w, "%s: %s (%d): %s\n", s.Table, class, s.ErrorCounts[class], s.FirstErrors[class]); err != nil {
				return err
			}
		}
	}
	return nil
}

func failedTables(run metrics.RunReport) []string {
	var tables []string
	for _, s := range run.RuleSets {
		if s.Failed() {
			tables = append(tables, s.Table)
		}
	}
	return tables
}
