// Package store records every decision pass as Parquet rows so games can be
// inspected after the fact.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/soak/strategy"
)

const schemaVersion = "decision_row_v1"

// DecisionRow is one agent's decision on one turn.
type DecisionRow struct {
	RunID   string `parquet:"run_id,dict"`
	Turn    int32  `parquet:"turn"`
	AgentID int32  `parquet:"agent_id"`

	// Command is the protocol line sent for the agent.
	Command    string `parquet:"command"`
	Label      string `parquet:"label,dict"`
	Delta      int32  `parquet:"delta"`
	Swing      int32  `parquet:"swing"`
	Considered int32  `parquet:"considered"`

	OwnScore      int32  `parquet:"own_score"`
	EnemyScore    int32  `parquet:"enemy_score"`
	Posture       string `parquet:"posture,dict"`
	Aggressive    bool   `parquet:"aggressive"`
	Fallback      bool   `parquet:"fallback"`
	Truncated     bool   `parquet:"truncated"`
	ElapsedMicros int64  `parquet:"elapsed_us"`
}

// Rows flattens a decision pass into one row per agent.
func Rows(runID, posture string, r strategy.Report) []DecisionRow {
	rows := make([]DecisionRow, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		rows = append(rows, DecisionRow{
			RunID:         runID,
			Turn:          int32(r.Turn),
			AgentID:       int32(d.Command.AgentID),
			Command:       d.Command.String(),
			Label:         d.Label,
			Delta:         int32(d.Delta),
			Swing:         int32(d.Swing),
			Considered:    int32(d.Considered),
			OwnScore:      int32(r.OwnScore),
			EnemyScore:    int32(r.EnemyScore),
			Posture:       posture,
			Aggressive:    r.Aggressive,
			Fallback:      r.Fallback,
			Truncated:     r.Truncated,
			ElapsedMicros: r.Elapsed.Microseconds(),
		})
	}
	return rows
}

// HistoryWriter streams rows into outDir/tmp and moves the finished file
// into outDir on Finalize, so readers never see a partial file.
type HistoryWriter struct {
	runID   string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[DecisionRow]
	rows   int
}

func NewHistoryWriter(outDir string) (*HistoryWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("history dir is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	runID := uuid.NewString()
	name := fmt.Sprintf("history_%s.parquet", runID)
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[DecisionRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
	)
	w.SetKeyValueMetadata("schema", schemaVersion)
	w.SetKeyValueMetadata("run_id", runID)

	return &HistoryWriter{
		runID:   runID,
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (h *HistoryWriter) RunID() string   { return h.runID }
func (h *HistoryWriter) OutPath() string { return h.outPath }
func (h *HistoryWriter) Rows() int       { return h.rows }

// Record appends the rows of one decision pass.
func (h *HistoryWriter) Record(posture string, r strategy.Report) error {
	if h.writer == nil {
		return fmt.Errorf("history writer is closed")
	}
	rows := Rows(h.runID, posture, r)
	if len(rows) == 0 {
		return nil
	}
	if _, err := h.writer.Write(rows); err != nil {
		return fmt.Errorf("write history rows: %w", err)
	}
	h.rows += len(rows)
	return nil
}

// Finalize closes the writer and publishes the file. With no rows the tmp
// file is removed and the returned path is empty.
func (h *HistoryWriter) Finalize() (string, error) {
	if h.writer == nil && h.file == nil {
		return "", nil
	}

	var closeErr, fileErr error
	if h.writer != nil {
		closeErr = h.writer.Close()
		h.writer = nil
	}
	if h.file != nil {
		_ = h.file.Sync()
		fileErr = h.file.Close()
		h.file = nil
	}
	if closeErr != nil {
		return "", fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", fmt.Errorf("close parquet file: %w", fileErr)
	}

	if h.rows == 0 {
		_ = os.Remove(h.tmpPath)
		return "", nil
	}
	if err := os.Rename(h.tmpPath, h.outPath); err != nil {
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return h.outPath, nil
}

// ReadHistory loads every row of a finished history file.
func ReadHistory(path string) ([]DecisionRow, error) {
	rows, err := parquet.ReadFile[DecisionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	return rows, nil
}
