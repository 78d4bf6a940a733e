package viz

import (
	"iter"
	"strings"
)

// brailleBase is the empty braille cell; the low eight bits of a rune above
// it select dots in a 2x4 grid:
//
//	1 4
//	2 5
//	3 6
//	7 8
var brailleBase rune = 0x2800

// dotBits maps a sub-pixel (y, x) inside one cell to its braille bit.
var dotBits = [4][2]int{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a monochrome dot raster over braille cells. A w x h canvas
// addresses 2w x 4h sub-pixels; out-of-range coordinates are ignored, so
// callers can draw partially visible shapes without clipping first.
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
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
		}
	}
	return c
}

// cell resolves a sub-pixel to its grid cell and dot bit.
func (c *Canvas) cell(x, y int) (row, col, bit int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	row, col = y/4, x/2
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, dotBits[y%4][x%2], true
}

// Set lights the sub-pixel at (x, y).
func (c *Canvas) Set(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= rune(bit)
	}
}

// Unset clears the sub-pixel at (x, y).
func (c *Canvas) Unset(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] &^= rune(bit)
	}
}

// Clear empties the whole canvas.
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
		}
	}
}

// Dots yields the sub-pixel coordinates of every lit dot, scanning cells
// row-major. Exporters consume this instead of decoding braille themselves.
func (c *Canvas) Dots() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for row, cells := range c.Grid {
			for col, r := range cells {
				bits := int(r - brailleBase)
				if bits == 0 {
					continue
				}
				for subY := range 4 {
					for subX := range 2 {
						if bits&dotBits[subY][subX] == 0 {
							continue
						}
						if !yield(col*2+subX, row*4+subY) {
							return
						}
					}
				}
			}
		}
	}
}

// DrawLine draws a line with Bresenham's algorithm.
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

// DrawCircle draws a circle outline with the midpoint algorithm.
func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r < 0 {
		return
	}
	if r == 0 {
		c.Set(cx, cy)
		return
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		c.Set(cx+x, cy+y)
		c.Set(cx+y, cy+x)
		c.Set(cx-y, cy+x)
		c.Set(cx-x, cy+y)
		c.Set(cx-x, cy-y)
		c.Set(cx-y, cy-x)
		c.Set(cx+y, cy-x)
		c.Set(cx+x, cy-y)
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2 * (y - x + 1)
		}
	}
}

// FillCircle fills a disc of radius r centered at (cx, cy).
func (c *Canvas) FillCircle(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

// DrawRect draws an axis-aligned rectangle outline.
func (c *Canvas) DrawRect(x0, y0, x1, y1 int) {
	c.DrawLine(x0, y0, x1, y0)
	c.DrawLine(x1, y0, x1, y1)
	c.DrawLine(x1, y1, x0, y1)
	c.DrawLine(x0, y1, x0, y0)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
