package handler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// PromptConfirmer reads a y/N answer from a terminal.
type PromptConfirmer struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPromptConfirmer creates a confirmer that prompts on out and reads from in.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewScanner(in), out: out}
}

// Confirm returns true only for "y" or "yes". End of input declines.
func (c *PromptConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return false, c.in.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(c.in.Text()))
	return answer == "y" || answer == "yes", nil
}

// AlwaysConfirm approves every prompt.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(string) (bool, error) { return true, nil }
