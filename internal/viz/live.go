package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mhaeusl/pendel/internal/engine"
)

const (
	canvasWidth  = 64
	canvasHeight = 22

	historyCapacity = 240
)

type TickMsg time.Time

// Model is the live terminal host: it owns the frame scheduler, the trail
// and all presentation state, and drives the session once per tick.
type Model struct {
	session *engine.Session
	trail   *Trail
	frameDt float64

	canvas     [][]rune
	running    bool
	showHelp   bool
	driftHist  []float64
	energyHist []float64
}

func NewModel(session *engine.Session, fps int) Model {
	if fps <= 0 {
		fps = 60
	}
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
	}
	return Model{
		session:    session,
		trail:      NewTrail(DefaultTrailCapacity),
		frameDt:    1.0 / float64(fps),
		canvas:     canvas,
		running:    true,
		driftHist:  make([]float64, 0, historyCapacity),
		energyHist: make([]float64, 0, historyCapacity),
	}
}

// Run starts the live view and blocks until the user quits.
func Run(session *engine.Session, fps int) error {
	p := tea.NewProgram(NewModel(session, fps))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)*m.frameDt), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.session.Reset()
			m.trail.Reset()
			m.driftHist = m.driftHist[:0]
			m.energyHist = m.energyHist[:0]
		case "m":
			next := engine.ModeDouble
			if m.session.Mode == engine.ModeDouble {
				next = engine.ModeSingle
			}
			if m.session.SetMode(next) {
				m.trail.Reset()
			}
		case "i":
			next := engine.Symplectic
			if m.session.Integrator == engine.Symplectic {
				next = engine.RK4
			}
			m.session.SetIntegrator(next)
		case "a":
			m.session.Autoswitch = !m.session.Autoswitch
		case "d":
			m.session.SetParam("damping", math.Max(0, m.session.Params.Damping-0.05))
		case "D":
			m.session.SetParam("damping", m.session.Params.Damping+0.05)
		case "+", "=":
			m.session.TimeScale = math.Min(8.0, m.session.TimeScale*1.25)
		case "-", "_":
			m.session.TimeScale = math.Max(0.1, m.session.TimeScale/1.25)
		case "?":
			m.showHelp = !m.showHelp
		}

	case TickMsg:
		if m.running {
			m.session.Step(m.frameDt)

			x1, y1, x2, y2 := m.session.Positions()
			if m.session.Mode == engine.ModeDouble {
				m.trail.Append(x2, y2)
			} else {
				m.trail.Append(x1, y1)
			}

			m.driftHist = appendBounded(m.driftHist, m.session.EnergyErr*100)
			m.energyHist = appendBounded(m.energyHist, m.session.Energy())
		}
		return m, m.tick()
	}

	return m, nil
}

func appendBounded(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[1:]
	}
	return hist
}

func (m *Model) clear() {
	for y := range m.canvas {
		for x := range m.canvas[y] {
			m.canvas[y][x] = ' '
		}
	}
}

func (m *Model) set(x, y int, c rune) {
	if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
		m.canvas[y][x] = c
	}
}

func (m *Model) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		m.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// draw projects rod geometry onto the canvas: pivot at the top center,
// y increasing downwards to match the physics convention.
func (m *Model) draw() {
	m.clear()

	p := m.session.Params
	reach := p.L1
	if m.session.Mode == engine.ModeDouble {
		reach += p.L2
	}
	if reach <= 0 {
		reach = 1
	}
	// Character cells are roughly twice as tall as wide.
	scaleY := float64(canvasHeight-4) / (2 * reach)
	scaleX := scaleY * 2

	px, py := canvasWidth/2, canvasHeight/2

	for _, pt := range m.trail.Points() {
		tx := px + int(pt.X*scaleX)
		ty := py + int(pt.Y*scaleY)
		m.set(tx, ty, '.')
	}

	x1, y1, x2, y2 := m.session.Positions()
	b1x := px + int(x1*scaleX)
	b1y := py + int(y1*scaleY)

	m.set(px, py, '+')
	m.line(px, py, b1x, b1y, '|')

	if m.session.Mode == engine.ModeDouble {
		b2x := px + int(x2*scaleX)
		b2y := py + int(y2*scaleY)
		m.set(b1x, b1y, 'o')
		m.line(b1x, b1y, b2x, b2y, '|')
		m.set(b2x, b2y, 'O')
	} else {
		m.set(b1x, b1y, 'O')
	}
}

func (m Model) View() string {
	m.draw()

	var canvas strings.Builder
	for _, row := range m.canvas {
		canvas.WriteString(string(row))
		canvas.WriteRune('\n')
	}

	stats := m.renderStats()
	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(canvas.String()),
		statsStyle.Render(stats),
	)

	out := headerStyle.Render(fmt.Sprintf("pendel · %s pendulum", m.session.Mode)) + "\n" + main

	if len(m.driftHist) > 2 {
		graph := asciigraph.Plot(m.driftHist,
			asciigraph.Height(5),
			asciigraph.Width(canvasWidth),
			asciigraph.Caption("energy drift [%]"),
		)
		out += "\n" + graphStyle.Render(graph)
	}

	if m.showHelp {
		out += "\n" + helpStyle.Render(
			"space pause · r reset · m mode · i integrator · a autoswitch\n"+
				"d/D damping · +/- time scale · q quit")
	} else {
		out += "\n" + helpStyle.Render("? help · q quit")
	}

	return out
}

func (m Model) renderStats() string {
	s := m.session

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(row("t", fmt.Sprintf("%.2f s", s.SimTime)))
	b.WriteString(row("integrator", string(s.Integrator)))
	b.WriteString(row("dt max", fmt.Sprintf("%.4f s", s.DtMax)))
	b.WriteString(row("time scale", fmt.Sprintf("%.2fx", s.TimeScale)))
	b.WriteString(row("damping", fmt.Sprintf("%.2f", s.Params.Damping)))
	b.WriteString(row("energy", fmt.Sprintf("%.3f J", s.Energy())))

	drift := fmt.Sprintf("%.2f %%", s.EnergyErr*100)
	if s.EnergyErr > 0.05 {
		b.WriteString(labelStyle.Render("drift") + alertStyle.Render(drift) + "\n")
	} else {
		b.WriteString(row("drift", drift))
	}

	auto := "off"
	if s.Autoswitch {
		auto = "on"
	}
	b.WriteString(row("autoswitch", auto))

	if !m.running {
		b.WriteString("\n" + alertStyle.Render("paused"))
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
