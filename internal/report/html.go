package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/tutu-network/gpusizer/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var calculatorTmpl = template.Must(template.ParseFS(templateFS, "templates/calculator.html"))

// WeightBitOptions are the weight precisions offered by the calculator form.
var WeightBitOptions = []Option{
	{Value: "32", Label: "FP32 - 32 bit"},
	{Value: "16", Label: "FP16 - 16 bit"},
	{Value: "8", Label: "INT8 - 8 bit"},
	{Value: "4", Label: "INT4 - 4 bit"},
}

// Form holds the calculator inputs as submitted.
type Form struct {
	NumGPU     int
	Workload   domain.Workload
	WeightBits int
	KVBytes    float64
	IncludeOOM bool
	ModelNames []string
	GPUNames   []string
}

// Query encodes the form as the query string the calculator understands.
func (f Form) Query() url.Values {
	q := url.Values{}
	q.Set("g", strconv.Itoa(f.NumGPU))
	q.Set("p", strconv.Itoa(f.Workload.PromptTokens))
	q.Set("r", strconv.Itoa(f.Workload.ResponseTokens))
	q.Set("c", strconv.Itoa(f.Workload.Concurrency))
	q.Set("weight_bits", strconv.Itoa(f.WeightBits))
	q.Set("kv", strconv.FormatFloat(f.KVBytes, 'g', -1, 64))
	if f.IncludeOOM {
		q.Set("oom", "1")
	} else {
		q.Set("oom", "0")
	}
	for _, m := range f.ModelNames {
		q.Add("model", m)
	}
	for _, g := range f.GPUNames {
		q.Add("gpu", g)
	}
	return q
}

// Option is one selectable form entry.
type Option struct {
	ID      string
	Value   string
	Label   string
	Checked bool
}

// ProviderOptions groups model checkboxes under one provider heading.
type ProviderOptions struct {
	Name   string
	ID     string
	Models []Option
}

// Page is everything the calculator template needs.
type Page struct {
	Form        Form
	Providers   []ProviderOptions
	GPUs        []Option
	Memory      Table
	Performance Table
}

// KVBytesText renders the KV precision without trailing zeros.
func (p Page) KVBytesText() string { return strconv.FormatFloat(p.Form.KVBytes, 'g', -1, 64) }

// WeightBitChoices marks the submitted weight precision as selected.
func (p Page) WeightBitChoices() []Option {
	out := make([]Option, len(WeightBitOptions))
	for i, o := range WeightBitOptions {
		o.Checked = o.Value == strconv.Itoa(p.Form.WeightBits)
		out[i] = o
	}
	return out
}

// CSVLink returns the download link for the "mem" or "perf" table.
func (p Page) CSVLink(kind string) template.URL {
	q := p.Form.Query()
	q.Set("format", "csv")
	q.Set("type", kind)
	return template.URL("/?" + q.Encode())
}

// ElementID turns a display name into a value safe for id and class attributes.
func ElementID(prefix, name string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", "/", "_", "(", "", ")", "", ".", "_")
	return prefix + r.Replace(name)
}

// RenderHTML writes the calculator page.
func RenderHTML(w io.Writer, p Page) error {
	if err := calculatorTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render calculator: %w", err)
	}
	return nil
}
