// SPDX-License-Identifier: MIT
package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// --- WAV decoder ---

type wavDecoder struct {
	file  *os.File
	dec   *wav.Decoder
	buf   *goaudio.IntBuffer
	scale float32 // 1 / full scale of the source bit depth
	rate  int
	ch    int
}

func newWAVDecoder(f *os.File) (decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	// FwdToPCM positions the reader at the start of PCM data
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	depth := int(dec.BitDepth)
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth %d", depth)
	}
	ch := int(dec.NumChans)
	return &wavDecoder{
		file: f,
		dec:  dec,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: ch, SampleRate: int(dec.SampleRate)},
			SourceBitDepth: depth,
		},
		scale: 1 / float32(int64(1)<<(depth-1)),
		rate:  int(dec.SampleRate),
		ch:    ch,
	}, nil
}

func (d *wavDecoder) read(p []float32) (int, error) {
	if cap(d.buf.Data) < len(p) {
		d.buf.Data = make([]int, len(p))
	}
	d.buf.Data = d.buf.Data[:len(p)]
	n, err := d.dec.PCMBuffer(d.buf)
	if n == 0 && err == nil {
		err = io.EOF
	}
	// 8-bit WAV is unsigned
	offset := 0
	if d.buf.SourceBitDepth == 8 {
		offset = 128
	}
	for i, s := range d.buf.Data[:n] {
		p[i] = float32(s-offset) * d.scale
	}
	return n, err
}

func (d *wavDecoder) sampleRate() int { return d.rate }
func (d *wavDecoder) channels() int   { return d.ch }
func (d *wavDecoder) close() error    { return d.file.Close() }

// --- MP3 decoder ---

// go-mp3 always produces 16-bit LE stereo.
type mp3Decoder struct {
	file *os.File
	dec  *mp3.Decoder
	raw  []byte
}

func newMP3Decoder(f *os.File) (decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{file: f, dec: dec}, nil
}

func (d *mp3Decoder) read(p []float32) (int, error) {
	need := len(p) * 2
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	n, err := io.ReadFull(d.dec, d.raw[:need])
	n -= n % 4 // whole stereo frames
	for i := range n / 2 {
		p[i] = float32(int16(binary.LittleEndian.Uint16(d.raw[i*2:]))) / 32768
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n / 2, err
}

func (d *mp3Decoder) sampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) channels() int   { return 2 }
func (d *mp3Decoder) close() error    { return d.file.Close() }

// --- OGG Vorbis decoder ---

type oggDecoder struct {
	file   *os.File
	reader *oggvorbis.Reader
}

func newOGGDecoder(f *os.File) (decoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggDecoder{file: f, reader: reader}, nil
}

func (d *oggDecoder) read(p []float32) (int, error) {
	n, err := d.reader.Read(p)
	for i, s := range p[:n] {
		if s > 1.0 {
			p[i] = 1.0
		} else if s < -1.0 {
			p[i] = -1.0
		}
	}
	return n, err
}

func (d *oggDecoder) sampleRate() int { return d.reader.SampleRate() }
func (d *oggDecoder) channels() int   { return d.reader.Channels() }
func (d *oggDecoder) close() error    { return d.file.Close() }

// --- FLAC decoder ---

type flacDecoder struct {
	file    *os.File
	stream  *flac.Stream
	frame   []float32 // last decoded frame, interleaved
	pending []float32 // tail of frame not yet handed out
	scale   float32
	ch      int
}

func newFLACDecoder(f *os.File) (decoder, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	return &flacDecoder{
		file:   f,
		stream: stream,
		scale:  1 / float32(int64(1)<<(info.BitsPerSample-1)),
		ch:     int(info.NChannels),
	}, nil
}

func (d *flacDecoder) read(p []float32) (int, error) {
	n := 0
	for n < len(p) {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err != nil {
				return n, err
			}
			nSamples := int(frame.Subframes[0].NSamples)
			buf := d.frame[:0]
			for i := range nSamples {
				for ch := range d.ch {
					buf = append(buf, float32(frame.Subframes[ch].Samples[i])*d.scale)
				}
			}
			d.frame = buf
			d.pending = buf
		}
		c := copy(p[n:], d.pending)
		n += c
		d.pending = d.pending[c:]
	}
	return n, nil
}

func (d *flacDecoder) sampleRate() int { return int(d.stream.Info.SampleRate) }
func (d *flacDecoder) channels() int   { return d.ch }
func (d *flacDecoder) close() error {
	d.stream.Close()
	if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
