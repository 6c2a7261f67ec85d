// SPDX-License-Identifier: MIT
package draw

import (
	"encoding/json"
	"math"
	"testing"
)

func TestListRecords(t *testing.T) {
	var l List
	l.Reset(640, 480)
	l.Save()
	l.SetFill(RGBA(1, 2, 3, 0.5))
	l.BeginPath()
	l.Circle(10, 10, 4)
	l.Fill()
	l.Restore()

	if l.Len() != 7 {
		t.Fatalf("Len = %d, want 7", l.Len())
	}
	if got := l.Count(OpArc); got != 1 {
		t.Errorf("Count(arc) = %d, want 1", got)
	}
	if w, h := l.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %vx%v", w, h)
	}

	l.Reset(1, 1)
	if l.Len() != 0 {
		t.Errorf("Len after Reset = %d", l.Len())
	}
}

func TestRGBAClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0.4, 0.4},
		{3, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := RGBA(0, 0, 0, tt.in).A; got != tt.want {
			t.Errorf("RGBA alpha %v = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAppendJSON(t *testing.T) {
	var l List
	l.Reset(100, 50)
	l.SetComposite(CompositeLighter)
	l.SetStroke(RGBA(90, 160, 255, 0.25))
	l.MoveTo(1.234, -0.001)
	l.LineTo(math.Inf(1), 2)
	l.FillRadialGradient(0, 0, 1, 0, 0, 10,
		Stop{0, Transparent},
		Stop{1, RGBA(0, 0, 0, 0.5)},
	)

	want := `{"w":100,"h":50,"cmds":[` +
		`["globalCompositeOperation","lighter"],` +
		`["strokeStyle","rgba(90,160,255,0.25)"],` +
		`["moveTo",1.23,0],` +
		`["lineTo",0,2],` +
		`["radialGradient",0,0,1,0,0,10,[[0,"rgba(0,0,0,0)"],[1,"rgba(0,0,0,0.5)"]]]]}`
	got := string(l.AppendJSON(nil))
	if got != want {
		t.Errorf("AppendJSON:\n got %s\nwant %s", got, want)
	}

	var decoded struct {
		W, H float64
		Cmds [][]any
	}
	raw, err := json.Marshal(&l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, raw)
	}
	if len(decoded.Cmds) != l.Len() {
		t.Errorf("decoded %d commands, want %d", len(decoded.Cmds), l.Len())
	}
}

func TestRecordingZeroAllocs(t *testing.T) {
	var l List
	buf := make([]byte, 0, 4096)
	frame := func() {
		l.Reset(320, 240)
		l.Save()
		l.Translate(160, 120)
		l.SetStroke(RGBA(255, 255, 255, 0.9))
		l.BeginPath()
		for i := range 32 {
			l.MoveTo(float64(i), 0)
			l.LineTo(float64(i), 10)
		}
		l.Stroke()
		l.FillRadialGradient(0, 0, 10, 0, 0, 100, Stop{0, Transparent}, Stop{1, RGBA(0, 0, 0, 0.5)})
		l.Restore()
		buf = l.AppendJSON(buf[:0])
	}
	frame()

	if allocs := testing.AllocsPerRun(100, frame); allocs != 0 {
		t.Errorf("recording a frame allocates %v times, want 0", allocs)
	}
}

func BenchmarkAppendJSON(b *testing.B) {
	var l List
	l.Reset(1280, 720)
	for i := range 512 {
		l.LineTo(float64(i)*1.5, float64(i)*0.25)
	}
	buf := make([]byte, 0, 16384)
	for b.Loop() {
		buf = l.AppendJSON(buf[:0])
	}
}
