package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega"

	"github.com/san-kum/armsim/internal/dynamo"
)

type jogRecorder struct {
	joint []int
	delta []float64
}

func (j *jogRecorder) Nudge(joint int, delta float64) {
	j.joint = append(j.joint, joint)
	j.delta = append(j.delta, delta)
}

type cameraBox struct{ cam Camera }

func (c *cameraBox) Camera() Camera     { return c.cam }
func (c *cameraBox) SetCamera(n Camera) { c.cam = n }

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m viewModel, msg tea.Msg) (viewModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(viewModel), cmd
}

func testFrame(i int) Frame {
	return Frame{
		Index:  i,
		Time:   float64(i) * 0.008,
		Canvas: "⠁",
		Joints: []JointReading{
			{Name: "shoulder", Q: 0.1, Target: 0.2, Limit: dynamo.JointLimit{Lower: -1, Upper: 1}},
			{Name: "elbow", Q: 0.5, Target: 0.5, Limit: dynamo.JointLimit{Lower: -1, Upper: 1}},
		},
	}
}

func TestViewerQuitCancels(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			cancelled := 0
			m := newViewModel(func() { cancelled++ }, nil, ViewerOptions{})
			_, cmd := update(m, key(k))
			if cancelled != 1 {
				t.Errorf("cancel called %d times", cancelled)
			}
			if cmd == nil {
				t.Fatal("no command returned")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("command is not tea.Quit")
			}
		})
	}
}

func TestViewerDoneQuitsWithoutCancel(t *testing.T) {
	cancelled := false
	m := newViewModel(func() { cancelled = true }, nil, ViewerOptions{})
	boom := errors.New("boom")
	m, cmd := update(m, doneMsg{err: boom})
	if cancelled {
		t.Error("finishing the loop should not cancel it again")
	}
	if cmd == nil || !errors.Is(m.err, boom) {
		t.Errorf("cmd=%v err=%v", cmd, m.err)
	}
}

func TestViewerFrames(t *testing.T) {
	g := NewWithT(t)
	m := newViewModel(nil, nil, ViewerOptions{Title: "jaco", NominalFPS: 125})
	g.Expect(m.View()).To(ContainSubstring("waiting"))

	start := time.Unix(0, 0)
	for i := 1; i <= 3; i++ {
		m.onFrame(testFrame(i), start.Add(time.Duration(i)*8*time.Millisecond))
	}
	g.Expect(m.fps).To(BeNumerically("~", 125, 1e-6))
	g.Expect(m.tracking).To(HaveLen(3))

	view := m.View()
	g.Expect(view).To(ContainSubstring("JACO"))
	g.Expect(view).To(ContainSubstring("shoulder"))
	g.Expect(view).To(ContainSubstring("elbow"))
	g.Expect(view).To(ContainSubstring("/ 125"))
}

func TestViewerTrackingHistoryBounded(t *testing.T) {
	m := newViewModel(nil, nil, ViewerOptions{})
	now := time.Now()
	for i := 0; i < historyCapacity+50; i++ {
		m.onFrame(testFrame(i), now)
	}
	if len(m.tracking) != historyCapacity {
		t.Errorf("history length %d, want %d", len(m.tracking), historyCapacity)
	}
}

func TestViewerJogsSelectedJoint(t *testing.T) {
	jog := &jogRecorder{}
	m := newViewModel(nil, nil, ViewerOptions{Jog: jog})
	m, _ = update(m, frameMsg(testFrame(1)))

	m, _ = update(m, key("right"))
	m, _ = update(m, key("down"))
	m, _ = update(m, key("down")) // already at the last joint
	m, _ = update(m, key("left"))

	if m.selected != 1 {
		t.Errorf("selected = %d", m.selected)
	}
	want := []int{0, 1}
	if len(jog.joint) != 2 || jog.joint[0] != want[0] || jog.joint[1] != want[1] {
		t.Errorf("jogged joints %v, want %v", jog.joint, want)
	}
	if jog.delta[0] != jogStep || jog.delta[1] != -jogStep {
		t.Errorf("deltas %v", jog.delta)
	}
}

func TestViewerSteersCamera(t *testing.T) {
	box := &cameraBox{cam: *NewCamera()}
	m := newViewModel(nil, box, ViewerOptions{})

	m, _ = update(m, key("a"))
	m, _ = update(m, key("+"))
	_, _ = update(m, key("s"))

	if box.cam.Yaw != orbitStep {
		t.Errorf("yaw = %v", box.cam.Yaw)
	}
	if box.cam.Zoom <= 1 {
		t.Errorf("zoom = %v", box.cam.Zoom)
	}
	if box.cam.Pitch >= -0.3 {
		t.Errorf("pitch = %v", box.cam.Pitch)
	}
}

func TestViewerCyclesThemes(t *testing.T) {
	m := newViewModel(nil, nil, ViewerOptions{Theme: Themes[len(Themes)-1].Name})
	m, _ = update(m, key("t"))
	if m.theme != 0 {
		t.Errorf("theme = %d, want wrap to 0", m.theme)
	}
	m, _ = update(m, frameMsg(testFrame(1)))
	m, _ = update(m, key("?"))
	if !strings.Contains(m.View(), "jog the selected joint") {
		t.Error("help overlay missing")
	}
}

func TestSparklineAndLimitBar(t *testing.T) {
	if got := Sparkline([]float64{0, 1}, 2); got != "▁█" {
		t.Errorf("sparkline %q", got)
	}
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty sparkline %q", got)
	}
	if got := LimitBar(0, -1, 1, 7); got != "[--|--]" {
		t.Errorf("limit bar %q", got)
	}
	if got := LimitBar(5, -1, 1, 7); got != "[----|]" {
		t.Errorf("clamped limit bar %q", got)
	}
}
