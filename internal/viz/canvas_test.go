package viz

import "testing"

// pixelOn reports whether the sub-pixel at (x, y) is set.
func pixelOn(c *Canvas, x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return false
	}
	return c.Grid[row][col]&rune(dotBits[y%4][x%2]) != 0
}

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(10, 10)

	c.Set(5, 7)
	if !pixelOn(c, 5, 7) {
		t.Fatal("pixel (5,7) not set")
	}
	if pixelOn(c, 4, 7) || pixelOn(c, 5, 6) {
		t.Fatal("neighboring pixels set")
	}

	c.Unset(5, 7)
	if pixelOn(c, 5, 7) {
		t.Fatal("pixel (5,7) still set after Unset")
	}
	if c.Grid[1][2] != 0x2800 {
		t.Fatalf("cell not restored to empty braille, got %#x", c.Grid[1][2])
	}
}

func TestCanvasBounds(t *testing.T) {
	c := NewCanvas(4, 4)

	// Out-of-range coordinates must be ignored, not panic.
	c.Set(-1, 0)
	c.Set(0, -5)
	c.Set(8, 0)  // == Width*2
	c.Set(0, 16) // == Height*4
	c.Unset(-1, -1)

	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				t.Fatalf("out-of-range Set modified the grid: %#x", cell)
			}
		}
	}
}

func TestCanvasDrawLine(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
	}{
		{"horizontal", 0, 3, 15, 3},
		{"vertical", 6, 0, 6, 15},
		{"diagonal", 0, 0, 15, 15},
		{"reversed", 15, 8, 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(8, 4)
			c.DrawLine(tt.x0, tt.y0, tt.x1, tt.y1)
			if !pixelOn(c, tt.x0, tt.y0) {
				t.Errorf("start (%d,%d) not set", tt.x0, tt.y0)
			}
			if !pixelOn(c, tt.x1, tt.y1) {
				t.Errorf("end (%d,%d) not set", tt.x1, tt.y1)
			}
			mx, my := (tt.x0+tt.x1)/2, (tt.y0+tt.y1)/2
			if !pixelOn(c, mx, my) {
				t.Errorf("midpoint (%d,%d) not set", mx, my)
			}
		})
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	cx, cy, r := 20, 20, 8
	c.DrawCircle(cx, cy, r)

	// The four axis extremes lie exactly on the circle.
	for _, p := range [][2]int{{cx + r, cy}, {cx - r, cy}, {cx, cy + r}, {cx, cy - r}} {
		if !pixelOn(c, p[0], p[1]) {
			t.Errorf("extreme (%d,%d) not set", p[0], p[1])
		}
	}
	if pixelOn(c, cx, cy) {
		t.Error("center set on an outline circle")
	}
}

func TestCanvasDrawCircleDegenerate(t *testing.T) {
	c := NewCanvas(10, 10)
	c.DrawCircle(4, 4, 0)
	if !pixelOn(c, 4, 4) {
		t.Fatal("zero radius should plot a single dot")
	}
	c.DrawCircle(4, 4, -3) // ignored
}

func TestCanvasFillCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	cx, cy, r := 12, 12, 4
	c.FillCircle(cx, cy, r)

	if !pixelOn(c, cx, cy) {
		t.Fatal("center not filled")
	}
	if !pixelOn(c, cx+r, cy) {
		t.Fatal("rim not filled")
	}
	if pixelOn(c, cx+r+2, cy) {
		t.Fatal("fill leaked outside the radius")
	}
}

func TestCanvasDrawRect(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawRect(2, 2, 30, 20)

	for _, p := range [][2]int{{2, 2}, {30, 2}, {30, 20}, {2, 20}, {16, 2}, {2, 11}} {
		if !pixelOn(c, p[0], p[1]) {
			t.Errorf("rect edge point (%d,%d) not set", p[0], p[1])
		}
	}
	if pixelOn(c, 16, 11) {
		t.Error("rect interior set")
	}
}

func TestCanvasDots(t *testing.T) {
	c := NewCanvas(4, 4)
	set := [][2]int{{0, 0}, {3, 5}, {7, 15}}
	for _, p := range set {
		c.Set(p[0], p[1])
	}

	got := map[[2]int]bool{}
	for x, y := range c.Dots() {
		got[[2]int{x, y}] = true
	}
	if len(got) != len(set) {
		t.Fatalf("Dots yielded %d coordinates, want %d", len(got), len(set))
	}
	for _, p := range set {
		if !got[p] {
			t.Errorf("dot (%d,%d) missing", p[0], p[1])
		}
	}
}

func TestCanvasDotsEarlyStop(t *testing.T) {
	c := NewCanvas(4, 4)
	c.FillCircle(4, 8, 3)

	n := 0
	for range c.Dots() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected the range loop to stop after 2 dots, saw %d", n)
	}
}

func TestCanvasClear(t *testing.T) {
	c := NewCanvas(6, 6)
	c.DrawLine(0, 0, 11, 23)
	c.Clear()
	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				t.Fatalf("cell not cleared: %#x", cell)
			}
		}
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	out := c.String()
	want := "⠀⠀⠀\n⠀⠀⠀\n"
	if out != want {
		t.Fatalf("empty canvas string = %q, want %q", out, want)
	}
}
