package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
)

const (
	metadataFile = "metadata.json"
	stepsFile    = "steps.csv"
	snapshotFile = "snapshot.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Points       int                `json:"points"`
	Survivors    int                `json:"survivors"`
	Steps        int                `json:"steps"`
	Dt           float64            `json:"dt"`
	Theta        float64            `json:"theta"`
	Capacity     int                `json:"capacity"`
	Distribution string             `json:"distribution"`
	Elapsed      time.Duration      `json:"elapsed_ns"`
	Metrics      map[string]float64 `json:"metrics"`
}

// StepRecord is one row of steps.csv.
type StepRecord struct {
	Step      int
	Survived  int
	Dropped   int
	Depth     int
	Nodes     int
	Near      int
	Far       int
	ElapsedMs float64
}

func (s *Store) Save(name string, cfg *config.Config, result *dynamo.Result, elapsed time.Duration) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Name:         name,
		Timestamp:    now,
		Seed:         cfg.Seed,
		Points:       cfg.Points,
		Survivors:    len(result.Points),
		Steps:        result.StepsTaken,
		Dt:           cfg.Dt,
		Theta:        cfg.Theta,
		Capacity:     cfg.Capacity,
		Distribution: cfg.Distribution,
		Elapsed:      elapsed,
		Metrics:      result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, "config.yaml"), cfg); err != nil {
		return "", err
	}
	if err := writeSteps(filepath.Join(runDir, stepsFile), result.History); err != nil {
		return "", err
	}
	if err := WriteSnapshot(filepath.Join(runDir, snapshotFile), result.Points); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSteps(path string, history []dynamo.StepStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "survived", "dropped", "depth", "nodes", "near", "far", "elapsed_ms"}); err != nil {
		return err
	}
	for _, st := range history {
		row := []string{
			strconv.Itoa(st.Step),
			strconv.Itoa(st.Survived),
			strconv.Itoa(st.Dropped),
			strconv.Itoa(st.Tree.MaxDepth),
			strconv.Itoa(st.Tree.Nodes),
			strconv.Itoa(st.Near),
			strconv.Itoa(st.Far),
			strconv.FormatFloat(float64(st.Elapsed.Microseconds())/1000, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteSnapshot writes points as id,x,y,vx,vy rows.
func WriteSnapshot(path string, pts []geom.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeSnapshot(f, pts)
}

func EncodeSnapshot(out io.Writer, pts []geom.Point) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "x", "y", "vx", "vy"}); err != nil {
		return err
	}
	for _, p := range pts {
		row := []string{
			strconv.Itoa(p.ID),
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
			strconv.FormatFloat(p.VX, 'g', -1, 64),
			strconv.FormatFloat(p.VY, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadSnapshot parses a file written by WriteSnapshot. Malformed rows
// are an error.
func ReadSnapshot(path string) ([]geom.Point, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	pts := make([]geom.Point, 0, len(records))
	for i, rec := range records {
		if len(rec) != 5 {
			return nil, fmt.Errorf("%s:%d: expected 5 fields, got %d", path, i+2, len(rec))
		}
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+2, err)
		}
		var v [4]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, i+2, err)
			}
		}
		pts = append(pts, geom.Point{ID: id, X: v[0], Y: v[1], VX: v[2], VY: v[3]})
	}
	return pts, nil
}

// readCSV returns the records after the header.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
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
		return [][]string{}, nil
	}
	return records[1:], nil
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

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, "config.yaml"))
}

func (s *Store) LoadSteps(runID string) ([]StepRecord, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, stepsFile))
	if err != nil {
		return nil, err
	}

	steps := make([]StepRecord, 0, len(records))
	for _, rec := range records {
		if len(rec) < 8 {
			continue
		}
		var ints [7]int
		ok := true
		for j := range ints {
			v, err := strconv.Atoi(rec[j])
			if err != nil {
				ok = false
				break
			}
			ints[j] = v
		}
		if !ok {
			continue
		}
		ms, _ := strconv.ParseFloat(rec[7], 64)
		steps = append(steps, StepRecord{
			Step: ints[0], Survived: ints[1], Dropped: ints[2], Depth: ints[3],
			Nodes: ints[4], Near: ints[5], Far: ints[6], ElapsedMs: ms,
		})
	}
	return steps, nil
}

func (s *Store) LoadSnapshot(runID string) ([]geom.Point, error) {
	return ReadSnapshot(filepath.Join(s.baseDir, runID, snapshotFile))
}
