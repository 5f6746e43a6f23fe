package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"icsguard/internal/model"
)

// Scenario filters for manual batch submission.
type Scenario string

const (
	ScenarioAttack Scenario = "attack"
	ScenarioNormal Scenario = "normal"
	ScenarioMixed  Scenario = "mixed"
)

func ParseScenario(s string) (Scenario, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mixed":
		return ScenarioMixed, nil
	case "attack":
		return ScenarioAttack, nil
	case "normal":
		return ScenarioNormal, nil
	}
	return "", fmt.Errorf("unknown scenario %q", s)
}

// Table is a bounded, pre-loaded sensor dataset. Column order is the
// authoritative schema for every batch sliced from it. Read-only after
// load.
type Table struct {
	Columns []string
	Rows    [][]float64
	Labels  []model.Label
}

const labelColumn = "Normal/Attack"

// LoadCSV reads a column-labeled sensor table. A Timestamp column is
// skipped, the Normal/Attack column is canonicalized to numeric labels at
// load time so scenario filters never see mixed string/numeric encodings.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	labelIdx := -1
	var columns []string
	var featureIdx []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case strings.EqualFold(name, labelColumn):
			labelIdx = i
		case strings.EqualFold(name, "Timestamp"):
			// timestamps are not features
		default:
			columns = append(columns, name)
			featureIdx = append(featureIdx, i)
		}
	}
	if len(columns) == 0 {
		return nil, errors.New("dataset has no feature columns")
	}

	t := &Table{Columns: columns}
	line := 1
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read dataset line %d: %w", line+1, err)
		}
		line++
		if len(record) != len(header) {
			return nil, fmt.Errorf("dataset line %d has %d fields, header has %d", line, len(record), len(header))
		}
		row := make([]float64, len(featureIdx))
		for j, idx := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset line %d column %q: %w", line, columns[j], err)
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
		if labelIdx >= 0 {
			label, err := ParseLabel(record[labelIdx])
			if err != nil {
				return nil, fmt.Errorf("dataset line %d: %w", line, err)
			}
			t.Labels = append(t.Labels, label)
		}
	}
	if len(t.Rows) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return t, nil
}

// ParseLabel canonicalizes a ground-truth label. Both the string forms
// ("Normal", "Attack", including the stray "A ttack" seen in the source
// data) and the numeric forms ("0", "1", "0.0", "1.0") are accepted.
func ParseLabel(s string) (model.Label, error) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch n {
	case "normal", "0", "0.0":
		return model.LabelNormal, nil
	case "attack", "1", "1.0":
		return model.LabelAttack, nil
	}
	return 0, fmt.Errorf("unrecognized label %q", s)
}

func (t *Table) Len() int { return len(t.Rows) }

// Slice returns up to n contiguous rows starting at offset as a batch.
func (t *Table) Slice(start, n int) model.SensorBatch {
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	if start >= end {
		return model.SensorBatch{Columns: t.Columns}
	}
	batch := model.SensorBatch{
		Columns: t.Columns,
		Rows:    t.Rows[start:end],
	}
	if t.Labels != nil {
		batch.Labels = t.Labels[start:end]
	}
	return batch
}

// Filter returns up to n rows matching the scenario. Attack and normal
// scenarios require labels; an empty selection is an error rather than a
// silent empty batch.
func (t *Table) Filter(scenario Scenario, n int) (model.SensorBatch, error) {
	if n <= 0 {
		n = 50
	}
	if scenario == ScenarioMixed {
		return t.Slice(0, n), nil
	}
	if t.Labels == nil {
		return model.SensorBatch{}, fmt.Errorf("scenario %q requires a labeled dataset", scenario)
	}
	want := model.LabelNormal
	if scenario == ScenarioAttack {
		want = model.LabelAttack
	}
	batch := model.SensorBatch{Columns: t.Columns}
	for i, label := range t.Labels {
		if label != want {
			continue
		}
		batch.Rows = append(batch.Rows, t.Rows[i])
		batch.Labels = append(batch.Labels, label)
		if len(batch.Rows) == n {
			break
		}
	}
	if len(batch.Rows) == 0 {
		return model.SensorBatch{}, fmt.Errorf("dataset has no %s rows", scenario)
	}
	return batch, nil
}
