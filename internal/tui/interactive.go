// Package tui shows a closed-loop run as it happens, either as a plain ANSI
// renderer or as an interactive bubbletea program.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/experiment"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/sim"
	"github.com/san-kum/lander/internal/storage"
	"github.com/san-kum/lander/internal/viz"
)

const (
	historySize = 250
	maxSpeed    = 16
)

// feed hands samples from the loop goroutine to the view. The loop blocks
// while nobody reads, which is how pausing works.
type feed struct {
	ctx     context.Context
	samples chan dynamo.Sample
}

func (f *feed) OnTick(s dynamo.Sample) {
	select {
	case f.samples <- s:
	case <-f.ctx.Done():
	}
}

type runDone struct {
	result *sim.Result
	err    error
}

type frameMsg time.Time

func frame(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

type Model struct {
	cfg    *config.Config
	exp    *experiment.Experiment
	ctx    context.Context
	cancel context.CancelFunc

	samples chan dynamo.Sample
	done    chan runDone

	scene   *viz.Scene
	last    *dynamo.Sample
	history []storage.Record
	paused  bool
	speed   int
	result  *runDone

	width, height int
}

// NewModel prepares the run described by cfg. The loop starts with the
// program.
func NewModel(cfg *config.Config) (*Model, error) {
	exp, err := experiment.New(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		cfg:     cfg,
		exp:     exp,
		ctx:     ctx,
		cancel:  cancel,
		samples: make(chan dynamo.Sample),
		done:    make(chan runDone, 1),
		speed:   1,
		width:   80,
		height:  24,
	}
	minX, maxX, minY, maxY := Bounds(cfg.Initial(), cfg.Target())
	m.scene = viz.NewScene(56, 16, minX, minY, maxX, maxY)
	exp.Loop().AddObserver(&feed{ctx: ctx, samples: m.samples})
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	go func() {
		res, err := m.exp.Run(m.ctx)
		m.done <- runDone{result: res, err: err}
	}()
	return frame(m.frameInterval())
}

func (m *Model) frameInterval() time.Duration {
	return time.Duration(m.cfg.Controller.Dt * float64(time.Second))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case frameMsg:
		if m.result != nil {
			return m, nil
		}
		if !m.paused {
			m.drain()
		}
		return m, frame(m.frameInterval())
	}
	return m, nil
}

// drain takes up to speed samples without blocking and checks whether the
// run has finished.
func (m *Model) drain() {
	for i := 0; i < m.speed; i++ {
		select {
		case s := <-m.samples:
			m.observe(s)
		case d := <-m.done:
			m.result = &d
			return
		default:
			return
		}
	}
}

func (m *Model) observe(s dynamo.Sample) {
	recs, err := storage.RecordsFromSamples([]dynamo.Sample{s})
	if err != nil {
		return
	}
	m.last = &s
	m.scene.Record(recs[0].Actual)
	m.history = append(m.history, recs[0])
	if len(m.history) > historySize {
		m.history = m.history[1:]
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.cancel()
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "0":
		m.speed = 1
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	title := fmt.Sprintf("lander  %s", m.cfg.Scenario.Name)
	b.WriteString(viz.Title.Render(title) + "  " + m.status() + "\n\n")

	target := m.cfg.Target()
	pose := m.cfg.Initial()
	var u physics.Control
	t := 0.0
	fallback := false
	if m.last != nil {
		pose, _ = physics.PoseFromState(m.last.State)
		u, _ = physics.ControlFromVector(m.last.Control)
		t = m.last.Time
		fallback = m.last.Fallback
	}

	scene := viz.Panel.Render(strings.TrimSuffix(m.scene.Draw(pose, target, m.cfg.Vehicle.Height), "\n"))
	side := strings.Join([]string{
		viz.Metric("t", t, "s"),
		viz.Metric("thrust", -u.Thrust, "N"),
		viz.Metric("gimbal", physics.Degrees(u.Gimbal), "°"),
		viz.Metric("alpha", physics.Degrees(pose.Alpha), "°"),
		viz.Metric("to ground", target.Y-pose.Y, "px"),
		viz.Metric("y_dot", pose.YDot, "px/s"),
		viz.Metric("x_dot", pose.XDot, "px/s"),
		"",
		viz.ProgressBar(t/m.cfg.Run.Duration, 20),
	}, "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, scene, "  ", side))
	b.WriteString("\n")

	if len(m.history) > 1 {
		alpha, _ := storage.ChannelByName("alpha")
		b.WriteString(viz.PlotChannel(alpha, m.history, 60, 6))
		b.WriteString("\n")
	}
	if fallback {
		b.WriteString(viz.StatusFailed.Render("fallback control active") + "\n")
	}
	b.WriteString(viz.KeyHint.Render(fmt.Sprintf("space pause  +/- speed (x%d)  q quit", m.speed)))
	return b.String()
}

func (m *Model) status() string {
	switch {
	case m.result != nil && m.result.err != nil:
		return viz.StatusFailed.Render("failed: " + m.result.err.Error())
	case m.result != nil && m.result.result != nil && m.result.result.Touchdown:
		return viz.StatusRunning.Render(fmt.Sprintf("touchdown at t=%.2fs", m.result.result.Time))
	case m.result != nil:
		return viz.StatusPaused.Render("finished")
	case m.paused:
		return viz.StatusPaused.Render("paused")
	default:
		return viz.StatusRunning.Render("running")
	}
}

// Result is the finished run, or nil while it is still going.
func (m *Model) Result() (*sim.Result, error) {
	if m.result == nil {
		return nil, nil
	}
	return m.result.result, m.result.err
}

// Run starts the interactive program and blocks until the user quits.
func Run(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}
	defer m.cancel()
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
