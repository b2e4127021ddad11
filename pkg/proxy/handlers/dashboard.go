package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/MiXaiLL76/auto-ai-router/pkg/accounting"
	"github.com/MiXaiLL76/auto-ai-router/pkg/credential"
)

// UsageSource supplies ledger data for the dashboard. Nil disables the
// usage tables.
type UsageSource interface {
	Recent(limit int) ([]accounting.Record, error)
	Totals() (accounting.Totals, error)
}

// DashboardHandler serves GET /vhealth, a minimal HTML view of the
// credential pool and recent usage. It reads snapshots only and never
// blocks request processing.
type DashboardHandler struct {
	Store   *credential.Store
	Usage   UsageSource
	started time.Time
}

// NewDashboardHandler creates the dashboard handler. usage may be nil.
func NewDashboardHandler(store *credential.Store, usage UsageSource) *DashboardHandler {
	return &DashboardHandler{Store: store, Usage: usage, started: time.Now()}
}

type dashboardData struct {
	Now         time.Time
	Uptime      time.Duration
	Stats       credential.Stats
	Credentials []credential.Info
	Totals      *accounting.Totals
	Recent      []accounting.Record
}

var dashboardTemplate = template.Must(template.New("vhealth").Parse(`<!DOCTYPE html>
<html>
<head>
<title>auto-ai-router</title>
<style>
body { font-family: monospace; margin: 2em; background: #fafafa; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #eee; }
.banned { color: #b00; }
.ok { color: #080; }
</style>
</head>
<body>
<h1>auto-ai-router</h1>
<p>uptime {{.Uptime}} &middot; rendered {{.Now.Format "2006-01-02 15:04:05"}}</p>

<h2>Credentials ({{.Stats.Available}}/{{.Stats.Total}} available, {{.Stats.Banned}} banned)</h2>
<table>
<tr><th>Label</th><th>Provider</th><th>State</th><th>Failures</th><th>Last used</th><th>Models</th></tr>
{{range .Credentials}}
<tr>
<td>{{.Label}}</td>
<td>{{.Provider}}</td>
{{if .Banned}}<td class="banned">banned ({{.BanReason}}) until {{.BannedUntil.Format "15:04:05"}}</td>
{{else}}<td class="ok">available</td>{{end}}
<td>{{.ConsecutiveFailures}}</td>
<td>{{if .LastUsed.IsZero}}never{{else}}{{.LastUsed.Format "15:04:05"}}{{end}}</td>
<td>{{range $i, $m := .Models}}{{if $i}}, {{end}}{{$m}}{{end}}</td>
</tr>
{{end}}
</table>

{{if .Totals}}
<h2>Usage ({{.Totals.Requests}} requests, {{.Totals.TotalTokens}} tokens)</h2>
<table>
<tr><th>Time</th><th>Model</th><th>Provider</th><th>Credential</th><th>Prompt</th><th>Completion</th><th>Total</th><th>Status</th><th>Latency</th></tr>
{{range .Recent}}
<tr>
<td>{{.Timestamp.Format "15:04:05"}}</td>
<td>{{.Model}}</td>
<td>{{.Provider}}</td>
<td>{{.Credential}}</td>
<td>{{.PromptTokens}}</td>
<td>{{.CompletionTokens}}</td>
<td>{{.TotalTokens}}</td>
<td>{{.Status}}</td>
<td>{{.LatencyMS}}ms</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// ServeHTTP implements http.Handler.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := dashboardData{
		Now:         time.Now(),
		Uptime:      time.Since(h.started).Round(time.Second),
		Stats:       h.Store.Stats(),
		Credentials: h.Store.Snapshot(),
	}

	if h.Usage != nil {
		if totals, err := h.Usage.Totals(); err == nil {
			data.Totals = &totals
		} else {
			slog.Warn("dashboard failed to read usage totals", "error", err)
		}
		if recent, err := h.Usage.Recent(30); err == nil {
			data.Recent = recent
		} else {
			slog.Warn("dashboard failed to read recent usage", "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render dashboard", "error", err)
	}
}
