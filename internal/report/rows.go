// Package report turns sweep output into tables and renders them as
// aligned text, CSV or the HTML calculator page.
package report

import (
	"fmt"
	"strconv"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// Column headers shared by every output format.
const (
	ColModel       = "Model"
	ColGPU         = "GPU"
	ColInput       = "Input Size (tokens)"
	ColOutput      = "Output Size (tokens)"
	ColConcurrent  = "Concurrent Requests"
	ColKVPerToken  = "KV Cache Size per Token"
	ColFootprint   = "Memory Footprint"
	ColMaxKVTokens = "Max # KV Cache Tokens"
	ColPrefill     = "Prefill Time"
	ColTPOT        = "TPOT (ms)"
	ColTTFT        = "TTFT"
	ColE2E         = "E2E Latency"
	ColThroughput  = "Output Tokens Throughput"
)

// Table titles.
const (
	MemoryTitle      = "******************** Estimate LLM Memory Footprint ********************"
	PerformanceTitle = "******************** Estimate LLM Capacity and Latency ********************"
)

// MemoryHeaders are the memory table columns, in order.
var MemoryHeaders = []string{ColModel, ColInput, ColOutput, ColConcurrent, ColKVPerToken, ColFootprint}

// PerformanceHeaders are the performance table columns, in order.
var PerformanceHeaders = []string{
	ColModel, ColGPU, ColInput, ColOutput, ColConcurrent, ColMaxKVTokens,
	ColPrefill, ColTPOT, ColTTFT, ColE2E, ColThroughput,
}

// Table is a titled grid of preformatted cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Records returns each row as a header → cell map.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// ─── Memory Table ───────────────────────────────────────────────────────────

// MemoryTable builds one row per model.
func MemoryTable(memory []domain.MemoryEstimate, w domain.Workload) Table {
	t := Table{Title: MemoryTitle, Headers: MemoryHeaders}
	for _, m := range memory {
		t.Rows = append(t.Rows, []string{
			m.Model.Name,
			strconv.Itoa(w.PromptTokens),
			strconv.Itoa(w.ResponseTokens),
			strconv.Itoa(w.Concurrency),
			fmt.Sprintf("%.6f GiB/token", m.KVPerTokenGiB),
			fmt.Sprintf("%.2f GB", m.FootprintGB),
		})
	}
	return t
}

// ─── Performance Table ──────────────────────────────────────────────────────

// Filter decides which estimates appear in the performance table.
type Filter struct {
	// IncludeOverCapacity keeps configurations that do not fit in memory.
	IncludeOverCapacity bool
	// IncludeNotComputable keeps configurations whose timings are OOM.
	IncludeNotComputable bool
}

// CLIFilter matches the command line: one switch controls both.
func CLIFilter(includeOOM bool) Filter {
	return Filter{IncludeOverCapacity: includeOOM, IncludeNotComputable: includeOOM}
}

// WebFilter matches the web UI: non-computable rows are always shown.
func WebFilter(includeOOM bool) Filter {
	return Filter{IncludeOverCapacity: includeOOM, IncludeNotComputable: true}
}

// Keep reports whether an estimate passes the filter.
func (f Filter) Keep(e domain.Estimate) bool {
	if !e.Fits && !f.IncludeOverCapacity {
		return false
	}
	if !e.Metrics.Computable() && !f.IncludeNotComputable {
		return false
	}
	return true
}

// PerformanceTable builds one row per kept model × GPU estimate.
func PerformanceTable(estimates []domain.Estimate, w domain.Workload, f Filter) Table {
	t := Table{Title: PerformanceTitle, Headers: PerformanceHeaders}
	for _, e := range estimates {
		if !f.Keep(e) {
			continue
		}
		t.Rows = append(t.Rows, PerformanceRow(e, w))
	}
	return t
}

// PerformanceRow formats one estimate.
func PerformanceRow(e domain.Estimate, w domain.Workload) []string {
	m := e.Metrics
	return []string{
		e.Model.Name,
		e.GPU.Name,
		strconv.Itoa(w.PromptTokens),
		strconv.Itoa(w.ResponseTokens),
		strconv.Itoa(w.Concurrency),
		strconv.Itoa(m.KVCacheTokens),
		m.PrefillTimePerTokenMs.Format(unit("%.3f ms")),
		m.TPOTMs.Format(unit("%.3f ms")),
		m.TTFTSeconds.Format(unit("%.3f s")),
		m.E2ELatencySeconds.Format(unit("%.1f s")),
		m.ThroughputTokensPerSec.Format(unit("%.2f tokens/sec")),
	}
}

func unit(format string) func(float64) string {
	return func(v float64) string { return fmt.Sprintf(format, v) }
}
