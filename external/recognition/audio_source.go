package recognition

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// wavHeaderSize is the canonical PCM WAV header length.
const wavHeaderSize = 44

// AudioSource yields 16-bit mono LINEAR16 audio from a WAV or raw PCM file. A named pipe works
// too; either way the audio is paced in real time.
type AudioSource struct {
	Path string
}

func NewAudioSource(path string) AudioSource {
	return AudioSource{Path: path}
}

func (s AudioSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	return &fileAudio{Reader: skipWAVHeader(f), file: f}, nil
}

type fileAudio struct {
	io.Reader
	file *os.File
}

func (f *fileAudio) Close() error {
	return f.file.Close()
}

func skipWAVHeader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	header, err := br.Peek(12)
	if err != nil || string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return br
	}
	if _, err := br.Discard(wavHeaderSize); err != nil {
		return &errReader{err: fmt.Errorf("truncated wav header: %w", err)}
	}
	return br
}

type errReader struct {
	err error
}

func (r *errReader) Read(_ []byte) (int, error) {
	return 0, r.err
}
