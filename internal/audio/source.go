// SPDX-License-Identifier: MIT
package audio

// Source is anything the bridge can analyse: a MediaStream or a *Capture.
// Sources are compared by identity, so implementations should be pointers.
type Source interface {
	Name() string
	SampleRate() int
	Channels() int
}

// MediaStream is a decoded, interleaved float32 PCM stream in [-1, 1].
// Read follows io.Reader semantics and returns io.EOF at the end.
type MediaStream interface {
	Source
	Read(p []float32) (int, error)
	Close() error
}

// downmix averages interleaved frames of src into mono dst and returns the
// number of frames written.
func downmix(dst, src []float32, channels int) int {
	if channels <= 1 {
		return copy(dst, src)
	}
	frames := len(src) / channels
	if frames > len(dst) {
		frames = len(dst)
	}
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for _, s := range src[i*channels : (i+1)*channels] {
			sum += s
		}
		dst[i] = sum * scale
	}
	return frames
}
