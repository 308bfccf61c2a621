package synthesis

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/foxseedlab/honyaku/internal/synthesis"
)

type EspeakEngine struct {
	binary string

	mu     sync.Mutex
	voices []synthesis.Voice
}

// NewEspeakEngine resolves binary on PATH. A missing binary yields
// synthesis.ErrCapabilityUnavailable.
func NewEspeakEngine(binary string) (*EspeakEngine, error) {
	if binary == "" {
		binary = "espeak-ng"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", synthesis.ErrCapabilityUnavailable, binary, err)
	}
	return &EspeakEngine{binary: path}, nil
}

// Voices lists installed voices once and caches the result.
func (e *EspeakEngine) Voices(ctx context.Context) ([]synthesis.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.voices != nil {
		return e.voices, nil
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, "--voices")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("espeak-ng --voices: %w", err)
	}
	voices, err := parseVoices(&out)
	if err != nil {
		return nil, err
	}
	e.voices = voices
	return voices, nil
}

func (e *EspeakEngine) Speak(ctx context.Context, u synthesis.Utterance) error {
	voice := u.Voice
	if voice == "" {
		voice = u.Locale
	}
	args := []string{"--stdin"}
	if voice != "" {
		args = append(args, "-v", voice)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(u.Text)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("espeak-ng: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 8)
func parseVoices(r io.Reader) ([]synthesis.Voice, error) {
	voices := []synthesis.Voice{}
	scanner := bufio.NewScanner(r)
	header := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if header {
			header = false
			if len(fields) > 0 && fields[0] == "Pty" {
				continue
			}
		}
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, synthesis.Voice{Name: fields[1], Locale: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read espeak-ng voices: %w", err)
	}
	return voices, nil
}
