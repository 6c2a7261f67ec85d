// SPDX-License-Identifier: MIT
package draw

import (
	"math"
	"strconv"
)

// AppendJSON appends the list as a JSON object to dst:
//
//	{"w":1280,"h":720,"cmds":[["save"],["fillStyle","rgba(90,160,255,0.5)"],["moveTo",1.5,2]]}
//
// Each command is an array led by its canvas name, followed by its numeric
// arguments, then its color, text or gradient stops where the op has them.
// Numbers are rounded to two decimals; non-finite values encode as 0.
func (l *List) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"w":`...)
	dst = appendNum(dst, l.width)
	dst = append(dst, `,"h":`...)
	dst = appendNum(dst, l.height)
	dst = append(dst, `,"cmds":[`...)
	for i := range l.cmds {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = l.appendCommand(dst, &l.cmds[i])
	}
	return append(dst, "]}"...)
}

// MarshalJSON implements json.Marshaler.
func (l *List) MarshalJSON() ([]byte, error) {
	return l.AppendJSON(make([]byte, 0, 64+24*len(l.cmds))), nil
}

func (l *List) appendCommand(dst []byte, c *Command) []byte {
	dst = append(dst, '[')
	dst = strconv.AppendQuote(dst, c.Op.String())
	for _, a := range c.Args[:c.N] {
		dst = append(dst, ',')
		dst = appendNum(dst, a)
	}
	switch c.Op {
	case OpFillStyle, OpStrokeStyle, OpShadow:
		dst = append(dst, ',')
		dst = appendColor(dst, c.Color)
	case OpComposite, OpLineCap:
		dst = append(dst, ',')
		dst = strconv.AppendQuote(dst, c.Text)
	case OpRadialGradient:
		dst = append(dst, ",["...)
		for i, s := range l.Stops(*c) {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = append(dst, '[')
			dst = appendNum(dst, s.Offset)
			dst = append(dst, ',')
			dst = appendColor(dst, s.Color)
			dst = append(dst, ']')
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}

func appendColor(dst []byte, c Color) []byte {
	dst = append(dst, `"rgba(`...)
	dst = strconv.AppendUint(dst, uint64(c.R), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(c.G), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(c.B), 10)
	dst = append(dst, ',')
	dst = strconv.AppendFloat(dst, math.Round(c.A*1000)/1000, 'f', -1, 64)
	return append(dst, `)"`...)
}

func appendNum(dst []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(dst, '0')
	}
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drops negative zero
	}
	return strconv.AppendFloat(dst, v, 'f', -1, 64)
}
