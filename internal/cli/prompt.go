package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt reads operator answers line by line. With AssumeYes set every
// confirmation answers yes and every selection takes the first choice, which
// makes the tool usable non-interactively.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer

	AssumeYes bool
}

// NewPrompt creates a Prompt reading from in and writing to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question. An empty answer takes the default.
func (p *Prompt) Confirm(message string, def bool) (bool, error) {
	if p.AssumeYes {
		return true, nil
	}
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	fmt.Fprintf(p.out, "? %s %s ", message, hint)

	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Text asks for a free-form answer; an empty answer takes the default.
func (p *Prompt) Text(message, def string) (string, error) {
	if p.AssumeYes && def != "" {
		p.Echo(message, def)
		return def, nil
	}
	if def != "" {
		fmt.Fprintf(p.out, "? %s [%s] ", message, def)
	} else {
		fmt.Fprintf(p.out, "? %s ", message)
	}
	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Select asks the operator to pick one of the choices by number and returns
// the chosen index.
func (p *Prompt) Select(message string, choices []string) (int, error) {
	if len(choices) == 0 {
		return 0, fmt.Errorf("no choices for %q", message)
	}
	if p.AssumeYes {
		p.Echo(message, choices[0])
		return 0, nil
	}
	fmt.Fprintf(p.out, "? %s\n", message)
	for i, choice := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, choice)
	}
	for {
		fmt.Fprintf(p.out, "> ")
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "enter a number between 1 and %d\n", len(choices))
	}
}

// Echo prints a question together with its already-known answer, so runs
// with stored credentials or a single possible choice read the same as
// interactive ones.
func (p *Prompt) Echo(message, choice string) {
	fmt.Fprintf(p.out, "? %s %s\n", message, choice)
}

func (p *Prompt) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
