// Package console is the line-oriented front end of the translator. Lines starting with '/' are
// commands; any other line replaces the transcript.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/foxseedlab/honyaku/internal/language"
	"github.com/foxseedlab/honyaku/internal/session"
)

type Controller interface {
	Start() error
	Stop()
	Clear()
	Swap()
	EditTranscript(text string)
	TranslateNow() error
	SetSourceLanguage(code string) error
	SetTargetLanguage(code string) error
	Speak(which session.Which) error
	StopSpeaking()
	Snapshot() session.Snapshot
}

var errQuit = errors.New("quit")

const helpText = `commands:
  /start                 start listening in the source language
  /stop                  stop listening
  /translate             translate the current transcript
  /speak [original|translated]
  /silence               stop speaking
  /source <code>         set the source language
  /target <code>         set the target language
  /swap                  swap languages and clear
  /clear                 clear transcript and translation
  /langs                 list languages
  /status                show the current state
  /quit
any other line replaces the transcript`

type Console struct {
	controller Controller
	mu         sync.Mutex
	out        io.Writer
}

func New(controller Controller, out io.Writer) *Console {
	return &Console{controller: controller, out: out}
}

// Attach sets the controller when the console has to exist first, as the controller's observer.
func (c *Console) Attach(controller Controller) {
	c.controller = controller
}

// Render prints a snapshot. It is safe to use as the controller's observer.
func (c *Console) Render(s session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := "idle"
	if s.Listening {
		state = "listening"
	}
	if s.Translating {
		state += ", translating"
	}
	fmt.Fprintf(c.out, "[%s -> %s] %s\n", s.SourceLang, s.TargetLang, state)
	if s.Transcript != "" {
		fmt.Fprintf(c.out, "  transcript:  %s\n", s.Transcript)
	}
	if s.Interim != "" {
		fmt.Fprintf(c.out, "  hearing:     %s\n", s.Interim)
	}
	if d := s.Translation.Display(); d != "" {
		fmt.Fprintf(c.out, "  translation: %s\n", d)
	}
	if s.Notice != "" {
		fmt.Fprintf(c.out, "  ! %s\n", s.Notice)
	}
}

func (c *Console) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, a...)
}

// Run reads lines from in until EOF, /quit or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := c.Execute(line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.printf("error: %v\n", err)
			}
		}
	}
}

// Execute runs one input line.
func (c *Console) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		c.controller.EditTranscript(line)
		return nil
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "start":
		return c.controller.Start()
	case "stop":
		c.controller.Stop()
	case "translate":
		return c.controller.TranslateNow()
	case "speak":
		return c.speak(arg)
	case "silence":
		c.controller.StopSpeaking()
	case "source":
		return c.controller.SetSourceLanguage(arg)
	case "target":
		return c.controller.SetTargetLanguage(arg)
	case "swap":
		c.controller.Swap()
	case "clear":
		c.controller.Clear()
	case "langs":
		c.printLanguages()
	case "status":
		c.Render(c.controller.Snapshot())
	case "help":
		c.printf("%s\n", helpText)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try /help", cmd)
	}
	return nil
}

func (c *Console) speak(arg string) error {
	switch strings.ToLower(arg) {
	case "", "original":
		return c.controller.Speak(session.Original)
	case "translated", "translation":
		return c.controller.Speak(session.Translated)
	}
	return fmt.Errorf("speak takes original or translated, got %q", arg)
}

func (c *Console) printLanguages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range language.List() {
		fmt.Fprintf(c.out, "  %-3s %-20s %s\n", e.Code, e.Label, e.LocaleTag)
	}
}
