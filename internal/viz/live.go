package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/metrics"
	"github.com/san-kum/quadsim/internal/quadtree"
	"github.com/san-kum/quadsim/internal/render"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	gifFrameSize    = 256
)

type TickMsg time.Time

// Model steps a simulator on every tick and renders the surviving points.
type Model struct {
	ctx       context.Context
	sim       *dynamo.Simulator
	domain    geom.Bounds
	title     string
	initial   []geom.Point
	pts       []geom.Point
	last      dynamo.StepStats
	steps     int
	canvas    *Canvas
	theme     int
	styles    styles
	running   bool
	showTree  bool
	showHelp  bool
	survivors []float64
	energy    []float64
	stepMs    []float64
	recording *render.GIFEncoder
	gifPath   string
	saved     string
	err       error
}

func NewModel(ctx context.Context, sim *dynamo.Simulator, pts []geom.Point, title string) Model {
	return Model{
		ctx:       ctx,
		sim:       sim,
		domain:    sim.Config().Domain,
		title:     title,
		initial:   append([]geom.Point(nil), pts...),
		pts:       append([]geom.Point(nil), pts...),
		canvas:    NewCanvas(width, height),
		styles:    newStyles(Themes[0]),
		running:   true,
		survivors: make([]float64, 0, historyCapacity),
		energy:    make([]float64, 0, historyCapacity),
		stepMs:    make([]float64, 0, historyCapacity),
		gifPath:   "simulation.gif",
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stopRecording()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.advance()
			}
		case "r":
			m.reset()
		case "b":
			m.showTree = !m.showTree
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "g":
			if m.recording != nil {
				m.stopRecording()
			} else {
				m.recording = &render.GIFEncoder{Path: m.gifPath, Delay: 3}
				m.saved = ""
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	if len(m.pts) == 0 || m.err != nil {
		m.running = false
		return
	}

	next, st, err := m.sim.Step(m.ctx, m.pts)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.pts, m.last = next, st
	m.steps++

	m.survivors = appendCapped(m.survivors, float64(st.Survived))
	m.energy = appendCapped(m.energy, metrics.Kinetic(next))
	m.stepMs = appendCapped(m.stepMs, float64(st.Elapsed.Microseconds())/1000)

	if m.recording != nil {
		if err := m.recording.Add(render.Rasterize(next, m.domain, gifFrameSize)); err != nil {
			m.err = err
		}
	}
}

func appendCapped(s []float64, v float64) []float64 {
	if len(s) == historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

func (m *Model) reset() {
	m.pts = append(m.pts[:0], m.initial...)
	m.last = dynamo.StepStats{}
	m.steps = 0
	m.survivors = m.survivors[:0]
	m.energy = m.energy[:0]
	m.stepMs = m.stepMs[:0]
	m.err = nil
}

func (m *Model) stopRecording() {
	if m.recording == nil {
		return
	}
	if err := m.recording.Close(); err != nil {
		m.err = err
	} else {
		m.saved = m.recording.Path
	}
	m.recording = nil
}

func (m *Model) draw() {
	m.canvas.Clear()
	if m.showTree {
		tree, _ := m.sim.BuildTree(m.pts)
		tree.Walk(func(n *quadtree.Node, depth int) bool {
			if !n.IsBranch() {
				m.canvas.Rect(n.Bounds, m.domain)
			}
			return true
		})
		tree.Release()
	}
	m.canvas.Plot(m.pts, m.domain)
}

func (m Model) View() string {
	m.draw()
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.errText.Render("ERROR") + "\n" + m.err.Error() + "\n\n")
	case m.running:
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	case len(m.pts) == 0:
		s.WriteString(st.paused.Render("EMPTY") + "\n\n")
	default:
		s.WriteString(st.paused.Render("PAUSED") + "\n\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.steps))
	row("Points", fmt.Sprintf("%d / %d", len(m.pts), len(m.initial)))
	row("Dropped", fmt.Sprintf("%d", m.last.Dropped))
	row("Depth", fmt.Sprintf("%d", m.last.Tree.MaxDepth))
	row("Nodes", fmt.Sprintf("%d", m.last.Tree.Nodes))
	row("Inter/pt", fmt.Sprintf("%.1f", m.last.InteractionsPerPoint()))
	row("Step ms", Sparkline(m.stepMs, 24))
	row("Theme", Themes[m.theme].Name)

	if m.recording != nil {
		s.WriteString(st.errText.Render(fmt.Sprintf("● REC %d frames", m.recording.Frames())) + "\n")
	} else if m.saved != "" {
		row("Saved", m.saved)
	}

	s.WriteString(st.help.Render("SP:Pause S:Step R:Reset Q:Quit\nB:Tree T:Theme G:Record ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))

	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space  pause / resume
  S      single step while paused
  R      reset to the initial points
  B      toggle quadtree overlay
  T      cycle themes
  G      start / stop GIF recording
  ?      toggle this help
  Q      quit
`

// Run starts the live view and blocks until the user quits.
func Run(ctx context.Context, sim *dynamo.Simulator, pts []geom.Point, title string) error {
	_, err := tea.NewProgram(NewModel(ctx, sim, pts, title), tea.WithAltScreen()).Run()
	return err
}
