// Package report lays out paginated PDF reports.
//
// Layout is cursor driven: text is written at the cursor's vertical offset,
// the offset advances by a fixed line height, and a new page starts once
// the offset passes the page-break threshold. Drawing goes through the
// Surface interface so the layout can be exercised without a PDF backend.
package report

// Page geometry in millimetres.
const (
	TopY         = 10.0
	PageBreakY   = 245.0
	LineHeight   = 5.0
	TitleAdvance = 10.0
	MemberIndent = 30.0
)

// Surface is the drawing target of a report.
type Surface interface {
	WriteAt(x, y float64, text string)
	AddPage()
}

// Cursor tracks the vertical write position on the current page.
type Cursor struct {
	Y          float64
	Top        float64
	Threshold  float64
	LineHeight float64
}

// NewCursor returns a cursor at the top of a page with the standard
// geometry.
func NewCursor() *Cursor {
	return &Cursor{
		Y:          TopY,
		Top:        TopY,
		Threshold:  PageBreakY,
		LineHeight: LineHeight,
	}
}

// WriteAt writes text at the current offset without advancing.
func (c *Cursor) WriteAt(s Surface, x float64, text string) {
	s.WriteAt(x, c.Y, text)
}

// WriteLine writes text at the current offset and advances one line.
func (c *Cursor) WriteLine(s Surface, x float64, text string) {
	s.WriteAt(x, c.Y, text)
	c.Y += c.LineHeight
}

// Advance moves the offset down by dy.
func (c *Cursor) Advance(dy float64) {
	c.Y += dy
}

// MaybeBreak starts a new page when the offset is past the threshold and
// reports whether it did.
func (c *Cursor) MaybeBreak(s Surface) bool {
	if c.Y <= c.Threshold {
		return false
	}
	s.AddPage()
	c.Y = c.Top
	return true
}
