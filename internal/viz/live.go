package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/metrics"
)

const (
	defaultWidth    = 80
	defaultHeight   = 30
	panelWidth      = 48
	historyCapacity = 300
	treeBoxDepth    = 2
)

// Options configures the live view.
type Options struct {
	Dt           float64
	FPS          int
	MaxParticles int
	Theme        string
}

type TickMsg time.Time

// Model drives a simulator from bubbletea ticks and renders it.
type Model struct {
	sim  *dynamo.Simulator
	opts Options

	width, height int
	canvas        *Canvas
	camera        *Camera
	theme         Theme

	paramKeys []string
	initial   map[string]float64
	selected  int

	steps       int
	simTime     float64
	lastStep    time.Duration
	stepHistory []float64
	keHistory   []float64
	lastErr     error

	showHelp bool
	showTree bool
}

func NewModel(sim *dynamo.Simulator, opts Options) Model {
	if opts.Dt <= 0 {
		opts.Dt = 0.01
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.MaxParticles <= 0 {
		opts.MaxParticles = 1_000_000
	}

	params := sim.GetParams()
	keys := sim.ParamNames()
	initial := make(map[string]float64, len(params))
	for k, v := range params {
		initial[k] = v
	}

	cam := NewCamera()
	cam.Fit(sim.Params().SpawnCenter, math.Max(sim.Params().SpawnRadius, 1))

	return Model{
		sim:       sim,
		opts:      opts,
		width:     defaultWidth,
		height:    defaultHeight,
		canvas:    NewCanvas(defaultWidth, defaultHeight),
		camera:    cam,
		theme:     GetTheme(opts.Theme),
		paramKeys: keys,
		initial:   initial,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := max(msg.Width-panelWidth-4, 20)
		h := max(msg.Height-2, 10)
		if w != m.width || h != m.height {
			m.width, m.height = w, h
			m.canvas = NewCanvas(w, h)
		}
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case TickMsg:
		m.step()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.sim.TogglePause()
	case "r":
		m.sim.Reset()
		m.resetHistory()
	case "s":
		m.lastErr = m.sim.SetStrategy(m.sim.Strategy().Next())
	case "tab":
		m.cycleParam()
	case "up", "k":
		m.adjustParam(1.1)
	case "down", "j":
		m.adjustParam(1 / 1.1)
	case "+":
		m.resize(2)
	case "-":
		m.resize(0.5)
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.RotateZ(0.1)
	case "Z":
		m.camera.RotateZ(-0.1)
	case "=":
		m.camera.ZoomIn()
	case "_":
		m.camera.ZoomOut()
	case "f":
		m.camera.FitParticles(m.sim.Particles())
	case "b":
		m.showTree = !m.showTree
	case "t":
		m.theme = NextTheme(m.theme.Name)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

// adjustParam scales the selected parameter. Zero values are nudged off zero
// so they can grow again; spawn coordinates move additively instead.
func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.sim.GetParams()[key]
	var next float64
	switch {
	case strings.HasPrefix(key, "spawn_") && key != "spawn_radius":
		next = val + math.Copysign(0.5, factor-1)
	case val == 0:
		next = 0.01
	default:
		next = val * factor
	}
	m.lastErr = m.sim.SetParam(key, next)
}

func (m *Model) resize(factor float64) {
	n := int(float64(m.sim.ParticleCount()) * factor)
	n = min(max(n, 1), m.opts.MaxParticles)
	m.lastErr = m.sim.SetParticleCount(n)
	m.resetHistory()
}

func (m *Model) resetHistory() {
	m.steps = 0
	m.simTime = 0
	m.stepHistory = m.stepHistory[:0]
	m.keHistory = m.keHistory[:0]
}

func (m *Model) step() {
	if m.sim.IsPaused() {
		return
	}
	start := time.Now()
	m.sim.Update(m.opts.Dt)
	m.lastStep = time.Since(start)
	m.steps++
	m.simTime += m.opts.Dt

	m.stepHistory = pushBounded(m.stepHistory, float64(m.lastStep)/float64(time.Millisecond))
	m.keHistory = pushBounded(m.keHistory, metrics.KineticEnergy(m.sim.Particles()))
}

func pushBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

type projected struct {
	x, y  int
	depth float64
	idx   int
}

// draw projects every particle and paints far ones first so near colors win
// the cell average last.
func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	proj := m.camera.Projector(w, h)

	if m.showTree {
		m.drawTree(proj)
	}

	ps := m.sim.Particles()
	pts := make([]projected, 0, len(ps))
	for i := range ps {
		x, y, d, ok := proj.Project(ps[i].Position)
		if ok {
			pts = append(pts, projected{x, y, d, i})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].depth > pts[j].depth })
	for _, p := range pts {
		if m.theme.ParticleColors {
			m.canvas.SetColor(p.x, p.y, ps[p.idx].Color)
		} else {
			m.canvas.Set(p.x, p.y)
		}
	}
}

func (m *Model) drawTree(proj Projector) {
	if m.sim.Strategy() != dynamo.BarnesHut || m.sim.TreeStats().Nodes == 0 {
		return
	}
	// The simulator only exposes summary stats; rebuild a shallow tree for
	// the overlay.
	ps := m.sim.Particles()
	tree := dynamo.NewOctree(dynamo.RootBounds(ps), ps)
	for i := range ps {
		tree.Insert(i)
	}
	tree.Walk(func(v dynamo.NodeView) bool {
		DrawBox(m.canvas, proj, v.Bounds)
		return v.Depth < treeBoxDepth
	})
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render(m.theme.Primary))

	var s strings.Builder
	s.WriteString(GradientText("N-BODY", m.theme.Primary, m.theme.Secondary) + "\n")
	if m.sim.IsPaused() {
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	} else {
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Strategy", m.sim.Strategy().String())
	row("Particles", fmt.Sprintf("%d", m.sim.ParticleCount()))
	row("Workers", fmt.Sprintf("%d", m.sim.Workers()))
	row("Time", fmt.Sprintf("%.2f (%d steps)", m.simTime, m.steps))
	row("Step", fmt.Sprintf("%.2fms", float64(m.lastStep)/float64(time.Millisecond)))
	if ts := m.sim.TreeStats(); ts.Nodes > 0 {
		row("Octree", fmt.Sprintf("%d nodes, depth %d", ts.Nodes, ts.MaxDepth))
	}
	s.WriteString(labelStyle.Render("Step time") + SparklineChart(m.stepHistory, 24) + "\n")

	if len(m.keHistory) > 1 {
		chart := asciigraph.Plot(m.keHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(m.theme.Secondary).Render(chart) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	params := m.sim.GetParams()
	active := activeParamStyle.Foreground(m.theme.Accent)
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-20s %s %.3g", k, ParamBar(params[k], m.initial[k]), params[k])
		if i == m.selected {
			s.WriteString(active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.UnsetWidth().Render(line) + "\n")
		}
	}
	if m.lastErr != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render(m.lastErr.Error()) + "\n")
	}
	s.WriteString("\n" + keyHint.Render("space pause  r reset  s strategy  ? help  q quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle.Render(s.String()))
	if m.showHelp {
		return helpBox.Render(helpText) + "\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS
space      pause / resume
r          respawn particles
s          cycle strategy
tab        select parameter
up / down  tune parameter (±10%)
+ / -      double / halve particle count
x y z      rotate (shift reverses)
= / _      zoom in / out
f          fit camera to the cloud
b          toggle octree boxes
t          cycle theme
?          toggle this help
q          quit`
