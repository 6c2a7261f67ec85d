// SPDX-License-Identifier: MIT
/*
Package media decodes audio files into interleaved float32 streams for the
signal bridge. The format is chosen by file extension: .wav, .mp3, .ogg and
.flac are supported.
*/
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"waveviz/internal/log"
)

var logger = log.Named("media")

// ErrUnsupportedFormat is returned for extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// decoder is implemented by all format-specific decoders.
type decoder interface {
	read(p []float32) (int, error)
	sampleRate() int
	channels() int
	close() error
}

// File is an open, decoding audio file. It satisfies audio.MediaStream.
type File struct {
	path string
	meta Metadata

	mu     sync.Mutex
	dec    decoder
	frames int64 // frames handed out so far
	closed bool
}

// Open opens path and prepares its decoder.
func Open(path string) (*File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	dec, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	m := &File{path: path, dec: dec, meta: ReadMetadata(path)}
	logger.Debugf("opened %q: %d ch, %d Hz", m.meta.Title, dec.channels(), dec.sampleRate())
	return m, nil
}

var decoders = map[string]func(*os.File) (decoder, error){
	".wav":  newWAVDecoder,
	".mp3":  newMP3Decoder,
	".ogg":  newOGGDecoder,
	".flac": newFLACDecoder,
}

// Formats lists the supported file extensions.
func Formats() []string {
	return []string{".flac", ".mp3", ".ogg", ".wav"}
}

// Name returns "Artist - Title" when tagged, else the file name.
func (m *File) Name() string { return m.meta.String() }

// Metadata returns the tags read at open time.
func (m *File) Metadata() Metadata { return m.meta }

// Path returns the file path.
func (m *File) Path() string { return m.path }

// SampleRate returns the stream sample rate in Hz.
func (m *File) SampleRate() int { return m.dec.sampleRate() }

// Channels returns the interleaved channel count.
func (m *File) Channels() int { return m.dec.channels() }

// Read fills p with interleaved samples in [-1, 1]. Only whole frames are
// returned.
func (m *File) Read(p []float32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.EOF
	}
	ch := m.dec.channels()
	p = p[:len(p)-len(p)%ch]
	if len(p) == 0 {
		return 0, nil
	}
	n, err := m.dec.read(p)
	m.frames += int64(n / ch)
	return n, err
}

// Position returns the number of frames read so far.
func (m *File) Position() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Close releases the decoder and file.
func (m *File) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.dec.close()
}
