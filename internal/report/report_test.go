package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/gpusizer/internal/domain"
)

func init() { color.NoColor = true }

var (
	testModel = domain.ModelSpec{Name: "llama-7b", ParamsBillion: 7, DModel: 4096, NHeads: 32, NKVHeads: 32, NLayers: 32}
	testGPU   = domain.GPUSpec{Name: "L4", FP16TFLOPS: 121, MemoryGB: 24, MemoryBandwidthGBps: 300}
	testWork  = domain.Workload{PromptTokens: 4096, ResponseTokens: 256, Concurrency: 10}
)

func computable() domain.Estimate {
	return domain.Estimate{
		Model: testModel,
		GPU:   testGPU,
		Fits:  true,
		Metrics: domain.PerformanceMetrics{
			KVCacheTokens:          20480,
			PrefillTimePerTokenMs:  domain.Value(0.115702),
			TPOTMs:                 domain.Value(46.66667),
			TTFTSeconds:            domain.Value(0.52058),
			E2ELatencySeconds:      domain.Value(12.42),
			ThroughputTokensPerSec: domain.Value(20.61),
		},
	}
}

func notComputable(fits bool) domain.Estimate {
	e := computable()
	e.Fits = fits
	e.Metrics = domain.PerformanceMetrics{
		KVCacheTokens:          5,
		PrefillTimePerTokenMs:  domain.NotComputable(),
		TPOTMs:                 domain.NotComputable(),
		TTFTSeconds:            domain.NotComputable(),
		E2ELatencySeconds:      domain.NotComputable(),
		ThroughputTokensPerSec: domain.NotComputable(),
	}
	return e
}

// ─── Rows ───────────────────────────────────────────────────────────────────

func TestMemoryTable(t *testing.T) {
	tbl := MemoryTable([]domain.MemoryEstimate{{
		Model:         testModel,
		KVPerTokenGiB: 0.00048828125,
		FootprintGB:   34.0,
	}}, testWork)

	assert.Equal(t, MemoryTitle, tbl.Title)
	assert.Equal(t, MemoryHeaders, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"llama-7b", "4096", "256", "10", "0.000488 GiB/token", "34.00 GB"}, tbl.Rows[0])
}

func TestPerformanceRow(t *testing.T) {
	row := PerformanceRow(computable(), testWork)
	assert.Equal(t, []string{
		"llama-7b", "L4", "4096", "256", "10", "20480",
		"0.116 ms", "46.667 ms", "0.521 s", "12.4 s", "20.61 tokens/sec",
	}, row)

	row = PerformanceRow(notComputable(true), testWork)
	assert.Equal(t, "5", row[5])
	for _, cell := range row[6:] {
		assert.Equal(t, "OOM", cell)
	}
}

func TestFilters(t *testing.T) {
	overCapacity := computable()
	overCapacity.Fits = false

	tests := []struct {
		name   string
		filter Filter
		input  domain.Estimate
		want   bool
	}{
		{"cli keeps fitting", CLIFilter(false), computable(), true},
		{"cli drops over capacity", CLIFilter(false), overCapacity, false},
		{"cli drops not computable", CLIFilter(false), notComputable(true), false},
		{"cli include-oom keeps both", CLIFilter(true), notComputable(false), true},
		{"web keeps not computable", WebFilter(false), notComputable(true), true},
		{"web drops over capacity", WebFilter(false), overCapacity, false},
		{"web include-oom keeps over capacity", WebFilter(true), overCapacity, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Keep(tt.input))
		})
	}
}

func TestPerformanceTable_Filtered(t *testing.T) {
	overCapacity := computable()
	overCapacity.Fits = false

	all := []domain.Estimate{computable(), overCapacity, notComputable(true)}

	assert.Len(t, PerformanceTable(all, testWork, CLIFilter(false)).Rows, 1)
	assert.Len(t, PerformanceTable(all, testWork, CLIFilter(true)).Rows, 3)
	assert.Len(t, PerformanceTable(all, testWork, WebFilter(false)).Rows, 2)
}

func TestRecords(t *testing.T) {
	tbl := PerformanceTable([]domain.Estimate{computable()}, testWork, CLIFilter(false))
	recs := tbl.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "L4", recs[0][ColGPU])
	assert.Equal(t, "20.61 tokens/sec", recs[0][ColThroughput])
}

// ─── CSV ────────────────────────────────────────────────────────────────────

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	tbl := PerformanceTable([]domain.Estimate{computable()}, testWork, CLIFilter(false))
	require.NoError(t, WriteCSV(&buf, tbl))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, PerformanceHeaders, records[0])
	assert.Equal(t, "llama-7b", records[1][0])
}

func TestWriteCSV_EmptyTableWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Table{Headers: MemoryHeaders}))
	assert.Equal(t, strings.Join(MemoryHeaders, ",")+"\n", buf.String())
}

func TestSaveCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := SaveCSV(dir, "llm_memory", Table{Headers: MemoryHeaders}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "llm_memory_20260102_030405.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), ColModel+","))
}

// ─── Text ───────────────────────────────────────────────────────────────────

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := PerformanceTable([]domain.Estimate{computable()}, testWork, CLIFilter(false))
	require.NoError(t, PrintTable(&buf, tbl))

	out := buf.String()
	assert.Contains(t, out, PerformanceTitle)
	assert.Contains(t, out, ColThroughput)
	assert.Contains(t, out, "20.61 tokens/sec")
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, Table{Title: MemoryTitle, Headers: MemoryHeaders}))
	assert.Contains(t, buf.String(), "(no rows)")
	assert.NotContains(t, buf.String(), ColFootprint)
}

// ─── HTML ───────────────────────────────────────────────────────────────────

func testPage() Page {
	return Page{
		Form: Form{
			NumGPU:     1,
			Workload:   testWork,
			WeightBits: 16,
			KVBytes:    2,
			ModelNames: []string{"llama-7b"},
			GPUNames:   []string{"L4"},
		},
		Providers: []ProviderOptions{{
			Name: "Meta",
			ID:   "Meta",
			Models: []Option{{
				ID: ElementID("model_", "llama-7b"), Value: "llama-7b", Label: "llama-7b", Checked: true,
			}},
		}},
		GPUs: []Option{{ID: ElementID("gpu_", "L4"), Value: "L4", Label: testGPU.Label(), Checked: true}},
	}
}

func TestRenderHTML_FormOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, testPage()))

	out := buf.String()
	assert.Contains(t, out, `<option value="16" selected>FP16 - 16 bit</option>`)
	assert.Contains(t, out, `value="4096"`)
	assert.Contains(t, out, `id="model_llama_7b"`)
	assert.Contains(t, out, "L4 (24GB)")
	assert.NotContains(t, out, "performance-section\"")
	assert.NotContains(t, out, "Download CSV")
}

func TestRenderHTML_Results(t *testing.T) {
	p := testPage()
	p.Memory = MemoryTable([]domain.MemoryEstimate{{Model: testModel, KVPerTokenGiB: 0.0005, FootprintGB: 34}}, testWork)
	p.Performance = PerformanceTable([]domain.Estimate{notComputable(true)}, testWork, WebFilter(false))

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, p))

	out := buf.String()
	assert.Contains(t, out, "<th>Memory Footprint</th>")
	assert.Contains(t, out, "<td>34.00 GB</td>")
	assert.Contains(t, out, "<td>OOM</td>")
	assert.Contains(t, out, "type=perf")
	assert.Contains(t, out, "type=mem")
	assert.Contains(t, out, "format=csv")
}

func TestFormQuery(t *testing.T) {
	f := testPage().Form
	f.IncludeOOM = true
	q := f.Query()
	assert.Equal(t, "1", q.Get("g"))
	assert.Equal(t, "16", q.Get("weight_bits"))
	assert.Equal(t, "2", q.Get("kv"))
	assert.Equal(t, "1", q.Get("oom"))
	assert.Equal(t, []string{"llama-7b"}, q["model"])
}

func TestElementID(t *testing.T) {
	assert.Equal(t, "gpu_RTX_Pro_6000_Blackwell", ElementID("gpu_", "RTX Pro 6000 (Blackwell)"))
	assert.Equal(t, "model_meta_llama_Llama_3_3_70B_Instruct", ElementID("model_", "meta-llama/Llama-3.3-70B-Instruct"))
}
