// Package templates renders passgap's HTML as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/passgap/internal/core"
)

// PageData is everything the main page shows.
type PageData struct {
	SlotA       *core.SlotSummary
	SlotB       *core.SlotSummary
	Strict      bool
	Comparison  *core.Comparison
	MaxFileSize int64
	History     []core.ComparisonRun
	HistoryOn   bool
}

// Page renders the full page: one upload form per source, the strict
// toggle, the summary, the missing table and the export link.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>passgap</title><style>` + pageStyle + `</style></head><body><main>`)
		p.raw(`<h1>passgap</h1><p class="lead">Find the passwords in one export that are missing from another.</p>`)

		p.raw(`<section class="slots">`)
		slotForm(p, core.SlotA, "Source A", "The export you are moving from", data.SlotA, data.MaxFileSize)
		slotForm(p, core.SlotB, "Source B", "The export you are moving to", data.SlotB, data.MaxFileSize)
		p.raw(`</section>`)

		compareForm(p, data)

		if data.Comparison != nil {
			results(p, data.Comparison)
		}
		if data.HistoryOn {
			history(p, data.History)
		}

		p.raw(`</main></body></html>`)
		return p.err
	})
}

// ErrorAlert renders an error fragment with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(message)
		p.raw(`</strong>`)
		if action != "" {
			p.raw(` <span>`)
			p.text(action)
			p.raw(`</span>`)
		}
		p.raw(` <code>`)
		p.text(code)
		p.raw(`</code></div>`)
		return p.err
	})
}

func slotForm(p *printer, slot core.Slot, label, hint string, summary *core.SlotSummary, maxSize int64) {
	p.raw(`<div class="slot"><h2>`)
	p.text(label)
	p.raw(`</h2><p class="hint">`)
	p.text(hint)
	p.raw(`</p>`)

	if summary != nil {
		p.raw(`<p class="loaded"><strong>`)
		p.text(summary.FileName)
		p.raw(`</strong>: `)
		p.text(strconv.Itoa(summary.Records) + " entries")
		p.raw(`</p>`)
		mappingList(p, summary)
		p.raw(`<form method="post" action="/slots/` + string(slot) + `/clear"><button type="submit">Clear</button></form>`)
	}

	p.raw(`<form method="post" enctype="multipart/form-data" action="/slots/` + string(slot) + `">`)
	p.raw(`<input type="file" name="file" accept=".csv,text/csv" required>`)
	p.raw(`<button type="submit">Upload</button>`)
	if maxSize > 0 {
		p.raw(`<small>Up to `)
		p.text(formatBytes(maxSize))
		p.raw(`</small>`)
	}
	p.raw(`</form></div>`)
}

func mappingList(p *printer, s *core.SlotSummary) {
	p.raw(`<ul class="mapping">`)
	for _, col := range s.Columns {
		p.raw(`<li>`)
		p.text(col.Header)
		p.raw(` &rarr; <code>`)
		p.text(string(col.Field))
		p.raw(`</code></li>`)
	}
	if len(s.Unmapped) > 0 {
		p.raw(`<li class="unmapped">Ignored: `)
		p.text(strings.Join(s.Unmapped, ", "))
		p.raw(`</li>`)
	}
	p.raw(`</ul>`)
}

func compareForm(p *printer, data PageData) {
	p.raw(`<form method="get" action="/" class="compare"><input type="hidden" name="compare" value="1">`)
	p.raw(`<label><input type="checkbox" name="strict" value="1"`)
	if data.Strict {
		p.raw(` checked`)
	}
	p.raw(`> Strict matching (compare full URL instead of domain)</label>`)
	p.raw(`<button type="submit"`)
	if data.SlotA == nil || data.SlotB == nil {
		p.raw(` disabled`)
	}
	p.raw(`>Compare</button></form>`)
}

func results(p *printer, cmp *core.Comparison) {
	s := cmp.Summary
	p.raw(`<section class="results"><h2>Results</h2><dl>`)
	p.raw(`<dt>Source A</dt><dd>` + strconv.Itoa(s.SourceA) + `</dd>`)
	p.raw(`<dt>Source B</dt><dd>` + strconv.Itoa(s.SourceB) + `</dd>`)
	p.raw(`<dt>Missing</dt><dd>` + strconv.Itoa(s.Missing) + `</dd></dl>`)

	if len(cmp.Missing) == 0 {
		p.raw(`<p>Nothing is missing.</p></section>`)
		return
	}

	p.raw(`<a class="export" href="/export?strict=` + strconv.FormatBool(s.Strict) + `">Download missing entries</a>`)
	p.raw(`<table><thead><tr><th>Title</th><th>Domain</th><th>Username</th><th>URL</th></tr></thead><tbody>`)
	for _, rec := range cmp.Missing {
		p.raw(`<tr><td>`)
		p.text(rec.Title)
		p.raw(`</td><td>`)
		p.text(rec.Domain())
		p.raw(`</td><td>`)
		p.text(rec.Username)
		p.raw(`</td><td>`)
		p.text(rec.URL)
		p.raw(`</td></tr>`)
	}
	p.raw(`</tbody></table></section>`)
}

func history(p *printer, runs []core.ComparisonRun) {
	p.raw(`<section class="history"><h2>Recent comparisons</h2>`)
	if len(runs) == 0 {
		p.raw(`<p>No comparisons recorded yet.</p></section>`)
		return
	}
	p.raw(`<table><thead><tr><th>When</th><th>Mode</th><th>A</th><th>B</th><th>Missing</th></tr></thead><tbody>`)
	for _, run := range runs {
		mode := "loose"
		if run.Strict {
			mode = "strict"
		}
		p.raw(`<tr><td>`)
		p.text(run.CreatedAt.Format("2006-01-02 15:04"))
		p.raw(`</td><td>` + mode + `</td>`)
		p.raw(`<td>` + strconv.Itoa(run.SourceA) + `</td>`)
		p.raw(`<td>` + strconv.Itoa(run.SourceB) + `</td>`)
		p.raw(`<td>` + strconv.Itoa(run.Missing) + `</td></tr>`)
	}
	p.raw(`</tbody></table></section>`)
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib {
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	return fmt.Sprintf("%d KiB", n/1024)
}

// printer keeps the first write error so components can write without
// checking every call.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1d232b}
main{max-width:960px;margin:0 auto;padding:2rem 1rem}
.lead{color:#56606b}
.slots{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
.slot,.results,.history{background:#fff;border:1px solid #dde1e6;border-radius:6px;padding:1rem;margin-top:1rem}
.hint,.unmapped,small{color:#6b7580}
.mapping{font-size:.9rem;padding-left:1rem}
.compare{margin-top:1rem}
.alert{background:#fdecea;border:1px solid #f5c2bd;padding:.75rem;border-radius:6px}
table{width:100%;border-collapse:collapse;margin-top:1rem}
th,td{text-align:left;padding:.35rem;border-bottom:1px solid #eef0f2;word-break:break-all}
dl{display:grid;grid-template-columns:max-content auto;gap:.25rem 1rem}`
