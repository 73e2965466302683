package viz

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	historyCapacity = 600
	jogStep         = 0.05
	orbitStep       = 0.1
)

// Jogger moves one joint target. *control.Manual satisfies it.
type Jogger interface {
	Nudge(joint int, delta float64)
}

// CameraControl is the part of FrameRenderer the viewer steers.
type CameraControl interface {
	Camera() Camera
	SetCamera(Camera)
}

type ViewerOptions struct {
	Title string
	Theme string
	// NominalFPS is the frame rate the drive loop aims for.
	NominalFPS float64
	AltScreen  bool
	Input      io.Reader
	Output     io.Writer
	Jog        Jogger
}

type frameMsg Frame

type doneMsg struct{ err error }

// Viewer shows frames produced by the drive loop. Closing it (q or ctrl+c)
// cancels the loop's context; the viewer never touches the simulation.
type Viewer struct {
	program *tea.Program
}

func NewViewer(cancel context.CancelFunc, camera CameraControl, opts ViewerOptions) *Viewer {
	popts := []tea.ProgramOption{}
	if opts.AltScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	if opts.Input != nil {
		popts = append(popts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		popts = append(popts, tea.WithOutput(opts.Output))
	}
	return &Viewer{program: tea.NewProgram(newViewModel(cancel, camera, opts), popts...)}
}

// Run blocks until the viewer is closed.
func (v *Viewer) Run() error {
	_, err := v.program.Run()
	return err
}

// Send delivers a frame. It is the sink for a FrameRenderer.
func (v *Viewer) Send(f Frame) { v.program.Send(frameMsg(f)) }

// Finish tells the viewer the drive loop has ended and closes it.
func (v *Viewer) Finish(err error) { v.program.Send(doneMsg{err: err}) }

type viewModel struct {
	cancel context.CancelFunc
	camera CameraControl
	jog    Jogger
	title  string

	frame     Frame
	hasFrame  bool
	tracking  []float64
	fps       float64
	nominal   float64
	lastFrame time.Time

	selected int
	theme    int
	showHelp bool
	err      error
}

func newViewModel(cancel context.CancelFunc, camera CameraControl, opts ViewerOptions) viewModel {
	if cancel == nil {
		cancel = func() {}
	}
	return viewModel{
		cancel:   cancel,
		camera:   camera,
		jog:      opts.Jog,
		title:    opts.Title,
		nominal:  opts.NominalFPS,
		theme:    ThemeIndex(opts.Theme),
		tracking: make([]float64, 0, historyCapacity),
	}
}

func (m viewModel) Init() tea.Cmd { return nil }

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case frameMsg:
		m.onFrame(Frame(msg), time.Now())
	case doneMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *viewModel) onFrame(f Frame, now time.Time) {
	if !m.lastFrame.IsZero() {
		if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
			inst := 1 / dt
			if m.fps == 0 {
				m.fps = inst
			} else {
				m.fps = 0.9*m.fps + 0.1*inst
			}
		}
	}
	m.lastFrame = now
	m.frame, m.hasFrame = f, true
	if len(m.tracking) == historyCapacity {
		copy(m.tracking, m.tracking[1:])
		m.tracking = m.tracking[:historyCapacity-1]
	}
	m.tracking = append(m.tracking, f.TrackingError())
	if m.selected >= len(f.Joints) {
		m.selected = max(0, len(f.Joints)-1)
	}
}

func (m viewModel) handleKey(msg tea.KeyMsg) (viewModel, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.cancel()
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.frame.Joints)-1 {
			m.selected++
		}
	case "left", "h":
		if m.jog != nil {
			m.jog.Nudge(m.selected, -jogStep)
		}
	case "right", "l":
		if m.jog != nil {
			m.jog.Nudge(m.selected, jogStep)
		}
	case "a", "d", "w", "s", "+", "=", "-":
		m.steer(msg.String())
	}
	return m, nil
}

func (m viewModel) steer(key string) {
	if m.camera == nil {
		return
	}
	c := m.camera.Camera()
	switch key {
	case "a":
		c.Orbit(orbitStep, 0)
	case "d":
		c.Orbit(-orbitStep, 0)
	case "w":
		c.Orbit(0, orbitStep)
	case "s":
		c.Orbit(0, -orbitStep)
	case "+", "=":
		c.ZoomIn()
	case "-":
		c.ZoomOut()
	}
	m.camera.SetCamera(c)
}

func (m viewModel) View() string {
	st := newStyles(Themes[m.theme])
	if !m.hasFrame {
		return st.muted.Render("waiting for first frame...") + "\n"
	}

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(st.label.Render("Time") + st.value.Render(fmt.Sprintf("%.3fs", m.frame.Time)) + "\n")
	s.WriteString(st.label.Render("Frame") + st.value.Render(fmt.Sprintf("%d", m.frame.Index)) + "\n")
	fps := fmt.Sprintf("%.1f", m.fps)
	if m.nominal > 0 && !math.IsNaN(m.nominal) {
		fps += fmt.Sprintf(" / %.0f", m.nominal)
	}
	s.WriteString(st.label.Render("FPS") + st.value.Render(fps) + "\n")
	trk := 0.0
	if n := len(m.tracking); n > 0 {
		trk = m.tracking[n-1]
	}
	s.WriteString(st.label.Render("Tracking") + st.value.Render(fmt.Sprintf("%.4f rad", trk)) + "\n")
	s.WriteString(st.label.Render("") + st.good.Render(Sparkline(m.tracking, 30)) + "\n\n")

	s.WriteString(st.header.Render("JOINTS") + "\n")
	for i, j := range m.frame.Joints {
		name := j.Name
		if name == "" {
			name = fmt.Sprintf("joint %d", i)
		}
		line := fmt.Sprintf("%-24s %7.3f -> %7.3f %s", name, j.Q, j.Target, LimitBar(j.Q, j.Limit.Lower, j.Limit.Upper, 12))
		switch {
		case i == m.selected:
			s.WriteString(st.selected.Render("> "+line) + "\n")
		case nearLimit(j.Q, j.Limit.Lower, j.Limit.Upper, 0.02):
			s.WriteString("  " + st.warn.Render(line) + "\n")
		default:
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}

	if len(m.tracking) > 1 {
		chart := asciigraph.Plot(m.tracking, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("tracking error"))
		s.WriteString("\n" + st.muted.Render(chart) + "\n")
	}
	s.WriteString(st.muted.Render("\nQ:quit T:theme ?:help  " + Themes[m.theme].Name))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.arm.Render(m.frame.Canvas), st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  q / ctrl+c   close viewer and stop the simulation
  up / down    select joint
  left / right jog the selected joint target
  a / d        orbit camera
  w / s        tilt camera
  + / -        zoom
  t            cycle theme
  ?            toggle this help
`
