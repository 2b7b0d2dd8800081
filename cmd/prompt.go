// File: cmd/prompt.go
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Indirections for tests.
var (
	termIsTerminal   = term.IsTerminal
	termReadPassword = term.ReadPassword
)

// prompter asks the operator for values on the command's streams.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	hasTTY bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.hasTTY = termIsTerminal(p.fd)
	}
	return p
}

// Line prints label and reads one trimmed line.
func (p *prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(line), nil
}

// Secret reads a value without echoing it when stdin is a terminal. Piped
// input is read as a plain line.
func (p *prompter) Secret(label string) (string, error) {
	if !p.hasTTY {
		return p.Line(label)
	}
	fmt.Fprint(p.out, label)
	secret, err := termReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// required re-asks until a non-empty answer is given.
func required(ask func(string) (string, error), label string) (string, error) {
	for {
		value, err := ask(label)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
	}
}
