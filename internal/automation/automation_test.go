package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/optim"
	"github.com/san-kum/quadsim/internal/storage"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Points = 150
	cfg.Steps = 3
	cfg.Workers = 2
	cfg.Seed = 1
	return cfg
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
name: smoke
runs:
  - preset: ring
    params: {steps: 2}
  - config: small.yaml
    save_as: custom
`)

	s, err := LoadScenario(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.Name).To(Equal("smoke"))
	g.Expect(s.Runs).To(HaveLen(2))
	g.Expect(s.Runs[0].Params).To(HaveKeyWithValue("steps", 2.0))
	g.Expect(s.Runs[0].name(0)).To(Equal("ring"))
	g.Expect(s.Runs[1].name(1)).To(Equal("custom"))
	g.Expect(ScenarioRun{}.name(2)).To(Equal("run3"))
}

func TestLoadScenarioEmpty(t *testing.T) {
	g := NewWithT(t)
	path := writeFile(t, t.TempDir(), "empty.yaml", "name: nothing\n")
	_, err := LoadScenario(path)
	g.Expect(err).To(MatchError(ContainSubstring("no runs")))
}

func TestResolveLayers(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeFile(t, dir, "over.yaml", "theta: 0.9\n")

	run := ScenarioRun{Preset: "galaxy", Config: "over.yaml", Params: map[string]float64{"points": 64}, Seed: 9}
	cfg, err := run.Resolve(dir)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Distribution).To(Equal("disk"))
	g.Expect(cfg.Theta).To(Equal(0.9))
	g.Expect(cfg.Points).To(Equal(64))
	g.Expect(cfg.Seed).To(Equal(int64(9)))

	_, err = ScenarioRun{Preset: "nope"}.Resolve(dir)
	g.Expect(err).To(HaveOccurred())

	_, err = ScenarioRun{Params: map[string]float64{"bogus": 1}}.Resolve(dir)
	g.Expect(err).To(HaveOccurred())
}

func TestRunScenarioSaves(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	writeFile(t, dir, "small.yaml", "points: 100\nsteps: 2\nworkers: 1\n")
	path := writeFile(t, dir, "batch.yaml", `
runs:
  - config: small.yaml
    seed: 3
  - config: small.yaml
    params: {theta: 0.3}
    save_as: tight
`)
	s, err := LoadScenario(path)
	g.Expect(err).NotTo(HaveOccurred())

	store := storage.New(filepath.Join(dir, "runs"))
	outcomes, err := NewRunner(store, nil).RunScenario(context.Background(), s)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(outcomes).To(HaveLen(2))
	g.Expect(outcomes[1].Name).To(Equal("tight"))
	g.Expect(outcomes[0].Result.StepsTaken).To(Equal(2))

	runs, err := store.List()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
	g.Expect(runs[1].Theta).To(Equal(0.3))
}

func TestSweepValues(t *testing.T) {
	g := NewWithT(t)
	s := &ParameterSweep{Min: 0, Max: 1, Count: 5}
	g.Expect(s.Values()).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))

	s.Count = 1
	g.Expect(s.Values()).To(Equal([]float64{0}))
}

func TestRunSweep(t *testing.T) {
	g := NewWithT(t)
	sweep := &ParameterSweep{Base: smallConfig(), Param: "theta", Min: 0.2, Max: 0.8, Count: 3}

	results, err := NewRunner(nil, nil).RunSweep(context.Background(), sweep)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(3))
	for _, r := range results {
		g.Expect(r.Metrics).To(HaveKey("interactions_per_point"))
	}
	// wider opening angle accepts more far-field nodes
	g.Expect(results[2].Metrics["interactions_per_point"]).To(BeNumerically("<", results[0].Metrics["interactions_per_point"]))
	g.Expect(sweep.Base.Theta).To(Equal(config.DefaultConfig().Theta))
}

func TestRunSweepInvalid(t *testing.T) {
	g := NewWithT(t)
	sweep := &ParameterSweep{Base: smallConfig(), Param: "dt", Min: -1, Max: -1, Count: 1}
	_, err := NewRunner(nil, nil).RunSweep(context.Background(), sweep)
	g.Expect(err).To(HaveOccurred())
}

func TestRunTrials(t *testing.T) {
	g := NewWithT(t)
	results, err := NewRunner(nil, nil).RunTrials(context.Background(), &SeedTrials{Base: smallConfig(), Trials: 3, Seed: 10})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(3))
	g.Expect(results[2].Seed).To(Equal(int64(12)))

	mean, std := TrialStats(results)
	g.Expect(mean).To(BeNumerically(">", 0))
	g.Expect(std).To(BeNumerically(">=", 0))
}

func TestTrialStats(t *testing.T) {
	g := NewWithT(t)
	mean, std := TrialStats([]TrialResult{{Survivors: 2}, {Survivors: 4}})
	g.Expect(mean).To(Equal(3.0))
	g.Expect(std).To(Equal(1.0))

	mean, std = TrialStats(nil)
	g.Expect(mean).To(BeZero())
	g.Expect(std).To(BeZero())
}

func TestCandidateWithGridSearch(t *testing.T) {
	g := NewWithT(t)
	gs := optim.NewGridSearch([]string{"theta"}, [][]float64{{0.2, 0.9}})

	best, _, trials, err := gs.Search(context.Background(), NewRunner(nil, nil).Candidate(smallConfig()), "interactions_per_point")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(trials).To(HaveLen(2))
	g.Expect(best["theta"]).To(Equal(0.9))
}

func TestCandidateRejectsInvalid(t *testing.T) {
	g := NewWithT(t)
	eval := NewRunner(nil, nil).Candidate(smallConfig())

	_, err := eval(context.Background(), map[string]float64{"capacity": 0})
	g.Expect(err).To(HaveOccurred())
	_, err = eval(context.Background(), map[string]float64{"unknown": 1})
	g.Expect(err).To(HaveOccurred())
}
