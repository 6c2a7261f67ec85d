// SPDX-License-Identifier: MIT
package media

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWAV(t *testing.T, rate, channels, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	data := make([]int, frames*channels)
	for i := range frames {
		v := int(16384 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := range channels {
			data[i*channels+c] = v
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encoder close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
	return path
}

func TestOpenWAV(t *testing.T) {
	const frames = 4410
	path := writeTestWAV(t, 22050, 2, frames)

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if m.SampleRate() != 22050 || m.Channels() != 2 {
		t.Fatalf("format = %d Hz %d ch, want 22050 Hz 2 ch", m.SampleRate(), m.Channels())
	}
	if m.Name() != "tone" {
		t.Errorf("Name = %q, want file name fallback", m.Name())
	}

	buf := make([]float32, 1001) // odd length, trimmed to whole frames
	total := 0
	var peak float32
	for {
		n, err := m.Read(buf)
		if n%2 != 0 {
			t.Fatalf("Read returned %d samples, not whole frames", n)
		}
		for _, s := range buf[:n] {
			peak = max(peak, s, -s)
		}
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if total > frames*4 {
			t.Fatal("Read never reached EOF")
		}
	}
	if total != frames*2 {
		t.Errorf("read %d samples, want %d", total, frames*2)
	}
	if math.Abs(float64(peak)-0.5) > 0.01 {
		t.Errorf("peak = %v, want ~0.5", peak)
	}
	if m.Position() != frames {
		t.Errorf("Position = %d, want %d", m.Position(), frames)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("song.aiff"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Open(.aiff) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Open of a missing file succeeded")
	}

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(bogus, []byte("not a wav file at all"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(bogus); err == nil {
		t.Error("Open of a corrupt WAV succeeded")
	}
}

func TestClosedFileReadsEOF(t *testing.T) {
	m, err := Open(writeTestWAV(t, 8000, 1, 800))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if n, err := m.Read(make([]float32, 16)); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Read after Close = %d, %v", n, err)
	}
}

func TestMetadataString(t *testing.T) {
	tests := []struct {
		m    Metadata
		want string
	}{
		{Metadata{Title: "Song"}, "Song"},
		{Metadata{Title: "Song", Artist: "Band"}, "Band - Song"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}
