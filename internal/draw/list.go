// SPDX-License-Identifier: MIT
/*
Package draw records a frame as a list of canvas 2D style commands.

Renderers append to a List; a surface replays it. The list owns its storage
and is reused frame after frame, so recording a frame allocates nothing once
the list has grown to its working size.
*/
package draw

import "math"

// Op identifies a drawing command. The names mirror the browser canvas API
// the preview page replays them on.
type Op uint8

const (
	OpSave Op = iota
	OpRestore
	OpComposite // Text holds the operation name
	OpAlpha
	OpFillStyle
	OpStrokeStyle
	OpLineWidth
	OpLineCap // Text holds the cap name
	OpShadow  // Args[0] blur, Color shadow color
	OpBeginPath
	OpMoveTo
	OpLineTo
	OpQuadTo
	OpArc
	OpClosePath
	OpFill
	OpStroke
	OpFillRect
	OpClearRect
	OpTranslate
	OpScale
	OpRadialGradient // fills the disc of the outer circle
	numOps
)

var opNames = [numOps]string{
	OpSave:           "save",
	OpRestore:        "restore",
	OpComposite:      "globalCompositeOperation",
	OpAlpha:          "globalAlpha",
	OpFillStyle:      "fillStyle",
	OpStrokeStyle:    "strokeStyle",
	OpLineWidth:      "lineWidth",
	OpLineCap:        "lineCap",
	OpShadow:         "shadow",
	OpBeginPath:      "beginPath",
	OpMoveTo:         "moveTo",
	OpLineTo:         "lineTo",
	OpQuadTo:         "quadraticCurveTo",
	OpArc:            "arc",
	OpClosePath:      "closePath",
	OpFill:           "fill",
	OpStroke:         "stroke",
	OpFillRect:       "fillRect",
	OpClearRect:      "clearRect",
	OpTranslate:      "translate",
	OpScale:          "scale",
	OpRadialGradient: "radialGradient",
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return "unknown"
}

// Composite operations used by the renderers.
const (
	CompositeNormal  = "source-over"
	CompositeLighter = "lighter"
)

// Color is an 8-bit RGB color with a float alpha in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

// RGBA builds a Color, clamping a into [0, 1].
func RGBA(r, g, b uint8, a float64) Color {
	switch {
	case math.IsNaN(a) || a < 0:
		a = 0
	case a > 1:
		a = 1
	}
	return Color{R: r, G: g, B: b, A: a}
}

// Transparent is fully transparent black.
var Transparent = Color{}

// Stop is one color stop of a gradient.
type Stop struct {
	Offset float64
	Color  Color
}

// Command is one recorded call. Only the first N Args are meaningful.
type Command struct {
	Op    Op
	N     uint8
	Args  [6]float64
	Color Color
	Text  string

	stopLo, stopHi int32 // range into List.stops
}

// List is a reusable frame of commands.
type List struct {
	width, height float64
	cmds          []Command
	stops         []Stop
}

// Reset empties the list and records the backing size of the frame it
// will describe.
func (l *List) Reset(width, height float64) {
	l.width, l.height = width, height
	l.cmds = l.cmds[:0]
	l.stops = l.stops[:0]
}

// Size returns the backing size passed to Reset.
func (l *List) Size() (width, height float64) { return l.width, l.height }

// Len returns the number of recorded commands.
func (l *List) Len() int { return len(l.cmds) }

// Commands returns the recorded commands. The slice is owned by the list.
func (l *List) Commands() []Command { return l.cmds }

// Stops returns the gradient stops of c, which must come from this list.
func (l *List) Stops(c Command) []Stop { return l.stops[c.stopLo:c.stopHi] }

// Count returns how many commands with op were recorded.
func (l *List) Count(op Op) int {
	n := 0
	for i := range l.cmds {
		if l.cmds[i].Op == op {
			n++
		}
	}
	return n
}

func (l *List) push(op Op, args ...float64) *Command {
	l.cmds = append(l.cmds, Command{Op: op, N: uint8(len(args))})
	c := &l.cmds[len(l.cmds)-1]
	copy(c.Args[:], args)
	return c
}

func (l *List) Save()    { l.push(OpSave) }
func (l *List) Restore() { l.push(OpRestore) }

func (l *List) SetComposite(op string) { l.push(OpComposite).Text = op }
func (l *List) SetAlpha(a float64)     { l.push(OpAlpha, a) }
func (l *List) SetFill(c Color)        { l.push(OpFillStyle).Color = c }
func (l *List) SetStroke(c Color)      { l.push(OpStrokeStyle).Color = c }
func (l *List) SetLineWidth(w float64) { l.push(OpLineWidth, w) }
func (l *List) SetLineCap(cap string)  { l.push(OpLineCap).Text = cap }

// SetShadow sets the shadow blur and color. A zero blur disables it.
func (l *List) SetShadow(blur float64, c Color) { l.push(OpShadow, blur).Color = c }

func (l *List) BeginPath()                  { l.push(OpBeginPath) }
func (l *List) MoveTo(x, y float64)         { l.push(OpMoveTo, x, y) }
func (l *List) LineTo(x, y float64)         { l.push(OpLineTo, x, y) }
func (l *List) QuadTo(cx, cy, x, y float64) { l.push(OpQuadTo, cx, cy, x, y) }
func (l *List) ClosePath()                  { l.push(OpClosePath) }
func (l *List) Fill()                       { l.push(OpFill) }
func (l *List) Stroke()                     { l.push(OpStroke) }

// Arc adds a circular arc centred on (x, y) from start to end radians.
func (l *List) Arc(x, y, r, start, end float64) { l.push(OpArc, x, y, r, start, end) }

// Circle adds a full circle as a new subpath.
func (l *List) Circle(x, y, r float64) {
	l.MoveTo(x+r, y)
	l.Arc(x, y, r, 0, 2*math.Pi)
}

func (l *List) FillRect(x, y, w, h float64)  { l.push(OpFillRect, x, y, w, h) }
func (l *List) ClearRect(x, y, w, h float64) { l.push(OpClearRect, x, y, w, h) }
func (l *List) Translate(x, y float64)       { l.push(OpTranslate, x, y) }
func (l *List) Scale(x, y float64)           { l.push(OpScale, x, y) }

// FillRadialGradient fills the disc of radius r1 around (x1, y1) with a
// radial gradient between the two circles.
func (l *List) FillRadialGradient(x0, y0, r0, x1, y1, r1 float64, stops ...Stop) {
	lo := int32(len(l.stops))
	l.stops = append(l.stops, stops...)
	c := l.push(OpRadialGradient, x0, y0, r0, x1, y1, r1)
	c.stopLo, c.stopHi = lo, int32(len(l.stops))
}
