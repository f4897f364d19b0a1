package viz

import (
	"math"
	"strings"

	"github.com/san-kum/lander/internal/physics"
)

// Braille patterns are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// offset from U+2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of Braille cells with Width*2 by Height*4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y) in dot coordinates. Dots outside the canvas
// are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Scene maps world coordinates (y grows downward, as in the dynamics) onto a
// canvas and draws the vehicle, its path and the target.
type Scene struct {
	canvas     *Canvas
	minX, minY float64
	scale      float64
	trail      [][2]int
	maxTrail   int
}

// NewScene fits the world rectangle [minX, maxX] x [minY, maxY] into a w by
// h cell canvas, preserving aspect ratio.
func NewScene(w, h int, minX, minY, maxX, maxY float64) *Scene {
	dotsX, dotsY := float64(w*2-1), float64(h*4-1)
	scale := math.Min(dotsX/math.Max(maxX-minX, 1), dotsY/math.Max(maxY-minY, 1))
	return &Scene{
		canvas:   NewCanvas(w, h),
		minX:     minX,
		minY:     minY,
		scale:    scale,
		maxTrail: 400,
	}
}

func (s *Scene) Canvas() *Canvas { return s.canvas }

func (s *Scene) toDots(x, y float64) (int, int) {
	return int(math.Round((x - s.minX) * s.scale)), int(math.Round((y - s.minY) * s.scale))
}

// Record appends the pose position to the trail.
func (s *Scene) Record(p physics.Pose) {
	x, y := s.toDots(p.X, p.Y)
	s.trail = append(s.trail, [2]int{x, y})
	if len(s.trail) > s.maxTrail {
		s.trail = s.trail[1:]
	}
}

// Draw renders the trail, the target cross, the ground line at the target
// height and the vehicle body of length height along its axis.
func (s *Scene) Draw(p physics.Pose, target physics.Pose, height float64) string {
	c := s.canvas
	c.Clear()

	for _, pt := range s.trail {
		c.Set(pt[0], pt[1])
	}

	tx, ty := s.toDots(target.X, target.Y)
	gy := ty + int(math.Round(0.5*height*s.scale))
	c.DrawLine(0, gy, c.Width*2-1, gy)
	c.DrawLine(tx-2, ty-2, tx+2, ty+2)
	c.DrawLine(tx-2, ty+2, tx+2, ty-2)

	// Alpha is measured from the upward vertical; the nose is up-screen.
	half := 0.5 * height
	nx, ny := s.toDots(p.X+half*math.Sin(p.Alpha), p.Y-half*math.Cos(p.Alpha))
	ex, ey := s.toDots(p.X-half*math.Sin(p.Alpha), p.Y+half*math.Cos(p.Alpha))
	c.DrawLine(nx, ny, ex, ey)
	return c.String()
}
