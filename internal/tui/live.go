package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/physics"
	"github.com/san-kum/lander/internal/viz"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer is a loop observer that redraws the scene on w at most
// frameRate times per second.
type LiveRenderer struct {
	out       io.Writer
	scene     *viz.Scene
	target    physics.Pose
	height    float64
	frameRate int
	lastFrame time.Time
	frames    int
}

// NewLiveRenderer frames the scene around the start and target positions.
func NewLiveRenderer(out io.Writer, initial, target physics.Pose, vehicleHeight float64, frameRate int) *LiveRenderer {
	minX, maxX, minY, maxY := Bounds(initial, target)
	return &LiveRenderer{
		out:       out,
		scene:     viz.NewScene(width, height, minX, minY, maxX, maxY),
		target:    target,
		height:    vehicleHeight,
		frameRate: max(frameRate, 1),
	}
}

// Bounds returns a world rectangle containing both poses with a margin.
func Bounds(a, b physics.Pose) (minX, maxX, minY, maxY float64) {
	minX, maxX = min(a.X, b.X), max(a.X, b.X)
	minY, maxY = min(a.Y, b.Y), max(a.Y, b.Y)
	padX := 0.25*(maxX-minX) + 50
	padY := 0.1*(maxY-minY) + 50
	return minX - padX, maxX + padX, minY - padY, maxY + padY
}

func (r *LiveRenderer) OnTick(s dynamo.Sample) {
	pose, err := physics.PoseFromState(s.State)
	if err != nil {
		return
	}
	r.scene.Record(pose)

	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.frames++

	u, _ := physics.ControlFromVector(s.Control)
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	for _, row := range strings.Split(strings.TrimSuffix(r.scene.Draw(pose, r.target, r.height), "\n"), "\n") {
		b.WriteString("  " + row + "\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString("  " + viz.TickReport(s.Time, pose, u, r.target, s.Fallback) + "\n")
	fmt.Fprint(r.out, b.String())
}

// Frames is the number of frames drawn so far.
func (r *LiveRenderer) Frames() int { return r.frames }

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
