package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store persists recorded runs under a base directory, one subdirectory per
// run with metadata.json and states.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata summarizes a recorded run.
type RunMetadata struct {
	ID              string    `json:"id"`
	Mode            string    `json:"mode"`
	Timestamp       time.Time `json:"timestamp"`
	Integrator      string    `json:"integrator"`
	FinalIntegrator string    `json:"final_integrator"`
	FrameDt         float64   `json:"frame_dt"`
	Duration        float64   `json:"duration"`
	TimeScale       float64   `json:"time_scale"`
	Autoswitch      bool      `json:"autoswitch"`
	EnergyDrift     float64   `json:"energy_drift"`

	// Params preserves the physical parameters of the run so consumers can
	// recompute geometry (bob positions) from stored states.
	Params map[string]float64 `json:"params,omitempty"`
}

// Record is the trajectory of one run: one row per host frame.
type Record struct {
	Times      []float64
	States     [][]float64
	Energies   []float64
	EnergyErrs []float64
}

func (r *Record) Append(t float64, state []float64, energy, energyErr float64) {
	st := make([]float64, len(state))
	copy(st, state)
	r.Times = append(r.Times, t)
	r.States = append(r.States, st)
	r.Energies = append(r.Energies, energy)
	r.EnergyErrs = append(r.EnergyErrs, energyErr)
}

func (s *Store) Save(meta RunMetadata, rec *Record) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Mode, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(rec.States) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	if len(rec.States[0]) >= 4 {
		header = append(header, "theta1", "omega1", "theta2", "omega2")
	} else {
		header = append(header, "theta", "omega")
	}
	header = append(header, "energy", "energy_err")

	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range rec.States {
		row := []string{strconv.FormatFloat(rec.Times[i], 'f', 6, 64)}
		for _, v := range rec.States[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		row = append(row,
			strconv.FormatFloat(rec.Energies[i], 'f', 6, 64),
			strconv.FormatFloat(rec.EnergyErrs[i], 'f', 6, 64),
		)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadRecord reads back the trajectory of a run. State width is inferred
// from the header (rows carry time + state + energy + energy_err).
func (s *Store) LoadRecord(runID string) (*Record, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &Record{}, nil
	}

	stateWidth := len(records[0]) - 3
	if stateWidth < 2 {
		return nil, fmt.Errorf("storage: malformed header in run %s", runID)
	}

	rec := &Record{}
	for _, row := range records[1:] {
		if len(row) != stateWidth+3 {
			continue
		}
		vals := make([]float64, 0, len(row))
		ok := true
		for _, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			continue
		}
		rec.Times = append(rec.Times, vals[0])
		rec.States = append(rec.States, vals[1:1+stateWidth])
		rec.Energies = append(rec.Energies, vals[1+stateWidth])
		rec.EnergyErrs = append(rec.EnergyErrs, vals[2+stateWidth])
	}

	return rec, nil
}
