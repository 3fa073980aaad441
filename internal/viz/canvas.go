package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille dot grid with an optional color per cell. Each cell
// covers 2x4 dots; colored dots landing in the same cell are averaged.
type Canvas struct {
	Width, Height int
	Grid          [][]rune

	sum   [][]colorful.Color
	count [][]int
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h}
	c.Grid = make([][]rune, h)
	c.sum = make([][]colorful.Color, h)
	c.count = make([][]int, h)
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.sum[i] = make([]colorful.Color, w)
		c.count[i] = make([]int, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	return row, col, col < c.Width && row < c.Height
}

// Set turns on the dot at (x, y) in dot coordinates.
func (c *Canvas) Set(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// SetColor turns on a dot and blends col into its cell color.
func (c *Canvas) SetColor(x, y int, col colorful.Color) {
	row, cl, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][cl] |= rune(pixelMap[y%4][x%2])
	s := &c.sum[row][cl]
	s.R += col.R
	s.G += col.G
	s.B += col.B
	c.count[row][cl]++
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.sum[i][j] = colorful.Color{}
			c.count[i][j] = 0
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
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

// CellColor returns the averaged color of a cell and whether any colored dot
// landed in it.
func (c *Canvas) CellColor(row, col int) (colorful.Color, bool) {
	n := c.count[row][col]
	if n == 0 {
		return colorful.Color{}, false
	}
	s := c.sum[row][col]
	f := 1 / float64(n)
	return colorful.Color{R: s.R * f, G: s.G * f, B: s.B * f}.Clamped(), true
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render draws the canvas with cell colors; uncolored dots use fallback.
// Runs of cells sharing a color are styled together.
func (c *Canvas) Render(fallback lipgloss.Color) string {
	var b strings.Builder
	for row := range c.Grid {
		var run strings.Builder
		runColor := lipgloss.Color("")
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(runColor).Render(run.String()))
			}
			run.Reset()
		}
		for col, r := range c.Grid[row] {
			next := lipgloss.Color("")
			if r != blank {
				next = fallback
				if cc, ok := c.CellColor(row, col); ok {
					next = lipgloss.Color(cc.Hex())
				}
			}
			if next != runColor {
				flush()
				runColor = next
			}
			run.WriteRune(r)
		}
		flush()
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
