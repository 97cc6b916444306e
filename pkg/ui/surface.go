package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Colors shared by all screens
var (
	StyleDefault     = tcell.StyleDefault
	StyleInvalid     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	StyleSelected    = tcell.StyleDefault.Foreground(tcell.ColorLightBlue)
	StylePlaceholder = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)

// Rect is a rectangle of cells
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle holds no cells
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Inset shrinks the rectangle by n cells on every side
func (r Rect) Inset(n int) Rect {
	return Rect{X: r.X + n, Y: r.Y + n, W: max(r.W-2*n, 0), H: max(r.H-2*n, 0)}
}

// CenterRect returns a rectangle of pctW by pctH percent centered in r
func CenterRect(r Rect, pctW, pctH int) Rect {
	w := r.W * pctW / 100
	h := r.H * pctH / 100
	return Rect{X: r.X + (r.W-w)/2, Y: r.Y + (r.H-h)/2, W: w, H: h}
}

// Surface is a clipped drawing area on a tcell screen
type Surface struct {
	screen tcell.Screen
	area   Rect
}

// NewSurface covers the whole screen
func NewSurface(screen tcell.Screen) *Surface {
	w, h := screen.Size()
	return &Surface{screen: screen, area: Rect{W: w, H: h}}
}

// Area returns the absolute area covered by the surface
func (s *Surface) Area() Rect { return s.area }

// Width returns the width of the surface in cells
func (s *Surface) Width() int { return s.area.W }

// Height returns the height of the surface in cells
func (s *Surface) Height() int { return s.area.H }

// Sub returns a surface for r, given relative to s and clipped to it
func (s *Surface) Sub(r Rect) *Surface {
	x0 := clamp(r.X, 0, s.area.W)
	y0 := clamp(r.Y, 0, s.area.H)
	x1 := clamp(r.X+r.W, x0, s.area.W)
	y1 := clamp(r.Y+r.H, y0, s.area.H)
	return &Surface{
		screen: s.screen,
		area:   Rect{X: s.area.X + x0, Y: s.area.Y + y0, W: x1 - x0, H: y1 - y0},
	}
}

// Local returns the surface's own bounds in its coordinates
func (s *Surface) Local() Rect {
	return Rect{W: s.area.W, H: s.area.H}
}

// Set draws one rune at x, y
func (s *Surface) Set(x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= s.area.W || y >= s.area.H {
		return
	}
	s.screen.SetContent(s.area.X+x, s.area.Y+y, r, nil, style)
}

// Text draws text starting at x, y and clips it at the right edge. It
// returns the number of cells drawn.
func (s *Surface) Text(x, y int, text string, style tcell.Style) int {
	if y < 0 || y >= s.area.H {
		return 0
	}

	col := x
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > s.area.W {
			break
		}
		s.Set(col, y, r, style)
		for i := 1; i < w; i++ {
			s.Set(col+i, y, ' ', style)
		}
		col += w
	}
	return col - x
}

// Centered draws text horizontally centered on row y
func (s *Surface) Centered(y int, text string, style tcell.Style) {
	text = Truncate(text, s.area.W)
	x := (s.area.W - runewidth.StringWidth(text)) / 2
	s.Text(x, y, text, style)
}

// Right draws text aligned to the right edge on row y
func (s *Surface) Right(y int, text string, style tcell.Style) {
	text = Truncate(text, s.area.W)
	s.Text(s.area.W-runewidth.StringWidth(text), y, text, style)
}

// Fill paints every cell of the surface with r
func (s *Surface) Fill(r rune, style tcell.Style) {
	for y := 0; y < s.area.H; y++ {
		for x := 0; x < s.area.W; x++ {
			s.Set(x, y, r, style)
		}
	}
}

// Box draws a rounded border around r with a title on the top edge and
// returns the surface inside the border.
func (s *Surface) Box(r Rect, title string, align Align, style tcell.Style) *Surface {
	outer := s.Sub(r)
	w, h := outer.area.W, outer.area.H
	if w < 2 || h < 2 {
		return outer.Sub(Rect{})
	}

	for x := 1; x < w-1; x++ {
		outer.Set(x, 0, tcell.RuneHLine, style)
		outer.Set(x, h-1, tcell.RuneHLine, style)
	}
	for y := 1; y < h-1; y++ {
		outer.Set(0, y, tcell.RuneVLine, style)
		outer.Set(w-1, y, tcell.RuneVLine, style)
	}
	outer.Set(0, 0, '╭', style)
	outer.Set(w-1, 0, '╮', style)
	outer.Set(0, h-1, '╰', style)
	outer.Set(w-1, h-1, '╯', style)

	if title != "" {
		title = Truncate(title, w-2)
		tw := runewidth.StringWidth(title)
		x := 1
		if align == AlignCenter {
			x = (w - tw) / 2
		}
		outer.Text(x, 0, title, style)
	}

	return outer.Sub(outer.Local().Inset(1))
}

// Align positions a box title
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Truncate cuts text to at most width cells
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "")
}

// Wrap splits text into lines of at most width cells
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	if text == "" {
		return []string{""}
	}
	wrapped := runewidth.Wrap(text, width)
	var lines []string
	start := 0
	for i, r := range wrapped {
		if r == '\n' {
			lines = append(lines, wrapped[start:i])
			start = i + 1
		}
	}
	return append(lines, wrapped[start:])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
