package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/quotaflow/quotaflow/internal/core"
)

// RenderResponse renders one settled response. Table output shows the call
// metadata followed by the raw body.
func RenderResponse(format Format, resp *core.Response) (string, error) {
	if resp == nil {
		return "", nil
	}
	if format == FormatJSON {
		return renderJSON(responseDoc(resp))
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Service", resp.Service})
	t.AppendRow(table.Row{"Endpoint", resp.Endpoint})
	t.AppendRow(table.Row{"Status", resp.StatusCode})
	t.AppendRow(table.Row{"From cache", resp.FromCache})
	if resp.Attempts > 0 {
		t.AppendRow(table.Row{"Attempts", resp.Attempts})
	}
	if resp.CallID != "" {
		t.AppendRow(table.Row{"Call ID", resp.CallID})
	}
	if !resp.ResolvedAt.IsZero() && !resp.RequestedAt.IsZero() {
		t.AppendRow(table.Row{"Latency", resp.ResolvedAt.Sub(resp.RequestedAt).Round(time.Millisecond)})
	}

	rendered := t.Render()
	if len(resp.Body) > 0 {
		rendered += "\n" + strings.TrimRight(string(resp.Body), "\n")
	}
	return rendered, nil
}

// RenderBatch renders index-aligned batch outcomes, one row per item.
func RenderBatch(format Format, items []core.BatchItem, results []core.BatchResult) (string, error) {
	if format == FormatJSON {
		docs := make([]map[string]any, len(results))
		for i, res := range results {
			doc := map[string]any{"ok": res.OK}
			if i < len(items) {
				doc["service"] = items[i].Service
				doc["endpoint"] = items[i].Endpoint
			}
			if res.Err != nil {
				doc["error"] = res.Err.Error()
			} else {
				doc["response"] = responseDoc(res.Response)
			}
			docs[i] = doc
		}
		return renderJSON(docs)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Service", "Endpoint", "Status", "Cache", "Notes"})

	succeeded := 0
	for i, res := range results {
		service, endpoint := "", ""
		if i < len(items) {
			service, endpoint = items[i].Service, items[i].Endpoint
		}
		if res.Err != nil {
			t.AppendRow(table.Row{i + 1, service, endpoint, "error", "", res.Err.Error()})
			continue
		}
		succeeded++
		cache := ""
		if res.Response.FromCache {
			cache = "hit"
		}
		t.AppendRow(table.Row{i + 1, service, endpoint, res.Response.StatusCode, cache, ""})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d ok", succeeded, len(results)), "", ""})

	return t.Render(), nil
}

// RenderCacheStats renders cache occupancy and hit rate.
func RenderCacheStats(format Format, stats core.CacheStats) (string, error) {
	if format == FormatJSON {
		return renderJSON(stats)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRow(table.Row{"Entries", fmt.Sprintf("%d/%d", stats.Size, stats.MaxSize)})
	t.AppendRow(table.Row{"Hits", stats.Hits})
	t.AppendRow(table.Row{"Misses", stats.Misses})
	t.AppendRow(table.Row{"Hit rate", fmt.Sprintf("%.1f%%", stats.HitRate*100)})
	return t.Render(), nil
}

// RenderRateLimits renders per-service sliding-window state.
func RenderRateLimits(format Format, statuses []core.RateLimitStatus) (string, error) {
	if format == FormatJSON {
		return renderJSON(statuses)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Service", "Used", "Limit", "Remaining", "Reset in"})
	for _, status := range statuses {
		t.AppendRow(table.Row{
			status.Service,
			status.Current,
			status.Limit,
			status.Remaining,
			status.ResetIn.Round(time.Second),
		})
	}
	return t.Render(), nil
}

// RenderJournal renders recent call history, newest first.
func RenderJournal(format Format, entries []core.JournalEntry) (string, error) {
	if format == FormatJSON {
		return renderJSON(entries)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Started", "Service", "Endpoint", "Method", "Status", "Attempts", "Outcome"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.StartedAt.Format("2006-01-02 15:04:05"),
			entry.Service,
			entry.Endpoint,
			entry.Method,
			entry.StatusCode,
			entry.Attempts,
			entry.Outcome,
		})
	}
	return t.Render(), nil
}

// responseDoc is the JSON form of a response with the body inlined as text.
func responseDoc(resp *core.Response) map[string]any {
	if resp == nil {
		return nil
	}
	doc := map[string]any{
		"service":     resp.Service,
		"endpoint":    resp.Endpoint,
		"status_code": resp.StatusCode,
		"from_cache":  resp.FromCache,
	}
	if resp.CallID != "" {
		doc["call_id"] = resp.CallID
	}
	if resp.ContentType != "" {
		doc["content_type"] = resp.ContentType
	}
	if resp.Attempts > 0 {
		doc["attempts"] = resp.Attempts
	}
	if len(resp.Body) > 0 {
		doc["body"] = string(resp.Body)
	}
	return doc
}
