// Package terminal reads answers to interactive login prompts.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is attempted without a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter asks questions on Out and reads answers from In.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// fd is the descriptor behind In, or -1 when In is not a file.
	fd     int
	reader *bufio.Reader
}

// NewPrompter returns a Prompter on stdin/stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, fd: int(os.Stdin.Fd())}
}

// NewPrompterWithIO returns a non-terminal Prompter, used by tests and pipes.
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{In: in, Out: out, fd: -1}
}

// Interactive reports whether In is a terminal.
func (p *Prompter) Interactive() bool {
	return p.fd >= 0 && term.IsTerminal(p.fd)
}

func (p *Prompter) readLine() (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Line prints label and returns the trimmed answer, or def when the answer is empty.
func (p *Prompter) Line(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.Out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.Out, "%s: ", label)
	}
	v, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// Secret reads an answer without echo when In is a terminal.
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", label)
	if p.Interactive() {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	v, err := p.readLine()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	return v, nil
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	v, err := p.Line(label+" (y/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
