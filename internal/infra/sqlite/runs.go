package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunData is everything one sizing invocation produced.
type RunData struct {
	NumGPU    int
	Precision domain.PrecisionSpec
	Workload  domain.Workload
	Memory    []domain.MemoryEstimate
	Estimates []domain.Estimate
}

// Run is a stored run header.
type Run struct {
	ID         string
	CreatedAt  time.Time
	NumGPU     int
	Precision  domain.PrecisionSpec
	Workload   domain.Workload
	MemoryRows int
	PerfRows   int
}

// PerfRecord is one stored performance row.
type PerfRecord struct {
	Model         string
	GPU           string
	Fits          bool
	KVCacheTokens int
	TPOTMs        domain.Metric
	Throughput    domain.Metric
}

// ─── Export ─────────────────────────────────────────────────────────────────

// ExportRun writes the run and all of its rows in one transaction and
// returns the generated run ID.
func (db *DB) ExportRun(data RunData, now time.Time) (string, error) {
	id := uuid.New().String()

	tx, err := db.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, created_at, num_gpu, weight_bytes, kv_bytes, prompt_tokens, response_tokens, concurrency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, now.UTC().Format(timeLayout), data.NumGPU,
		data.Precision.WeightBytes, data.Precision.KVBytes,
		data.Workload.PromptTokens, data.Workload.ResponseTokens, data.Workload.Concurrency)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, m := range data.Memory {
		_, err := tx.Exec(`
			INSERT INTO memory_rows (run_id, model, kv_gib_per_token, weights_gb, footprint_gb)
			VALUES (?, ?, ?, ?, ?)
		`, id, m.Model.Name, m.KVPerTokenGiB, m.WeightsGB, m.FootprintGB)
		if err != nil {
			return "", fmt.Errorf("insert memory row %s: %w", m.Model.Name, err)
		}
	}

	for _, e := range data.Estimates {
		pm := e.Metrics
		_, err := tx.Exec(`
			INSERT INTO perf_rows (run_id, model, gpu, fits, footprint_gb, available_gb, kv_cache_tokens,
				prefill_ms, tpot_ms, ttft_s, e2e_s, throughput_tps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, e.Model.Name, e.GPU.Name, boolInt(e.Fits), e.FootprintGB, e.AvailableGB, pm.KVCacheTokens,
			nullMetric(pm.PrefillTimePerTokenMs), nullMetric(pm.TPOTMs), nullMetric(pm.TTFTSeconds),
			nullMetric(pm.E2ELatencySeconds), nullMetric(pm.ThroughputTokensPerSec))
		if err != nil {
			return "", fmt.Errorf("insert perf row %s/%s: %w", e.Model.Name, e.GPU.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit export: %w", err)
	}
	return id, nil
}

// ─── Inspection ─────────────────────────────────────────────────────────────

// ListRuns returns stored runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.db.Query(`
		SELECT r.id, r.created_at, r.num_gpu, r.weight_bytes, r.kv_bytes,
			r.prompt_tokens, r.response_tokens, r.concurrency,
			(SELECT COUNT(*) FROM memory_rows m WHERE m.run_id = r.id),
			(SELECT COUNT(*) FROM perf_rows p WHERE p.run_id = r.id)
		FROM runs r ORDER BY r.created_at DESC, r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &created, &r.NumGPU, &r.Precision.WeightBytes, &r.Precision.KVBytes,
			&r.Workload.PromptTokens, &r.Workload.ResponseTokens, &r.Workload.Concurrency,
			&r.MemoryRows, &r.PerfRows); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		result = append(result, r)
	}
	return result, rows.Err()
}

// PerfRecords returns the performance rows of one run in model, GPU order.
func (db *DB) PerfRecords(runID string) ([]PerfRecord, error) {
	rows, err := db.db.Query(`
		SELECT model, gpu, fits, kv_cache_tokens, tpot_ms, throughput_tps
		FROM perf_rows WHERE run_id = ? ORDER BY model, gpu
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PerfRecord
	for rows.Next() {
		var r PerfRecord
		var fits int
		var tpot, tput sql.NullFloat64
		if err := rows.Scan(&r.Model, &r.GPU, &fits, &r.KVCacheTokens, &tpot, &tput); err != nil {
			return nil, err
		}
		r.Fits = fits == 1
		r.TPOTMs = metricFromNull(tpot)
		r.Throughput = metricFromNull(tput)
		result = append(result, r)
	}
	return result, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullMetric(m domain.Metric) sql.NullFloat64 {
	v, ok := m.Float64()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func metricFromNull(n sql.NullFloat64) domain.Metric {
	if !n.Valid {
		return domain.NotComputable()
	}
	return domain.Value(n.Float64)
}
