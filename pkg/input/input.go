// Package input provides terminal prompts for the interactive deal form.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ErrCanceled is returned when the user dismisses a selection.
var ErrCanceled = errors.New("selection canceled")

// Collector asks the user for deal field values.
type Collector interface {
	// AskQuestion presents a question with options and returns the selected option.
	AskQuestion(ctx context.Context, question string, options []string) (string, error)
	// AskText reads one line of text. an empty answer keeps current.
	AskText(ctx context.Context, prompt, current string) (string, error)
}

// TerminalCollector implements Collector on stdin/stdout. option lists use fzf when it is
// installed, numbered selection otherwise.
type TerminalCollector struct {
	stdin  io.Reader // nil uses os.Stdin
	stdout io.Writer // nil uses os.Stdout
	fzf    bool

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewTerminalCollector creates a collector reading os.Stdin, using fzf if available.
func NewTerminalCollector() *TerminalCollector {
	return &TerminalCollector{fzf: hasFzf()}
}

// AskQuestion presents options using fzf if available, otherwise falls back to numbered selection.
func (c *TerminalCollector) AskQuestion(ctx context.Context, question string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options provided")
	}
	if c.fzf {
		return c.selectWithFzf(ctx, question, options)
	}
	return c.selectWithNumbers(ctx, question, options)
}

// AskText prints the prompt with the current value in brackets and reads the answer.
// surrounding spaces are trimmed; an empty answer returns current unchanged.
func (c *TerminalCollector) AskText(ctx context.Context, prompt, current string) (string, error) {
	if current != "" {
		_, _ = fmt.Fprintf(c.out(), "%s [%s]: ", prompt, current)
	} else {
		_, _ = fmt.Fprintf(c.out(), "%s: ", prompt)
	}

	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return current, nil
	}
	return line, nil
}

// hasFzf checks if fzf is available in PATH.
func hasFzf() bool {
	_, err := exec.LookPath("fzf")
	return err == nil
}

// selectWithFzf uses fzf for interactive selection.
func (c *TerminalCollector) selectWithFzf(ctx context.Context, question string, options []string) (string, error) {
	cmd := exec.CommandContext(ctx, "fzf", "--prompt", question+": ", "--height", "10", "--layout=reverse") //nolint:gosec // fzf is a trusted external tool
	cmd.Stdin = strings.NewReader(strings.Join(options, "\n"))
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		// fzf returns exit code 130 when user presses Escape
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("fzf selection failed: %w", err)
	}

	selected := strings.TrimSpace(string(output))
	if selected == "" {
		return "", errors.New("no selection made")
	}
	return selected, nil
}

// selectWithNumbers presents numbered options for selection via stdin.
func (c *TerminalCollector) selectWithNumbers(ctx context.Context, question string, options []string) (string, error) {
	stdout := c.out()
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stdout, question)
	for i, opt := range options {
		_, _ = fmt.Fprintf(stdout, "  %d) %s\n", i+1, opt)
	}
	_, _ = fmt.Fprintf(stdout, "Enter number (1-%d): ", len(options))

	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)
	num, err := strconv.Atoi(line)
	if err != nil {
		return "", fmt.Errorf("invalid number: %s", line)
	}
	if num < 1 || num > len(options) {
		return "", fmt.Errorf("selection out of range: %d (must be 1-%d)", num, len(options))
	}
	return options[num-1], nil
}

// readLine returns the next input line. a single goroutine owns the reader, so a read
// abandoned on ctx cancellation does not lose or race with the next one.
func (c *TerminalCollector) readLine(ctx context.Context) (string, error) {
	c.once.Do(func() {
		c.lines = make(chan lineResult)
		go c.readLoop()
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("read input: %w", ctx.Err())
	case res, ok := <-c.lines:
		if !ok {
			return "", fmt.Errorf("read input: %w", io.EOF)
		}
		if res.err != nil {
			return "", fmt.Errorf("read input: %w", res.err)
		}
		return res.line, nil
	}
}

func (c *TerminalCollector) readLoop() {
	stdin := c.stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	reader := bufio.NewReader(stdin)
	defer close(c.lines)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			c.lines <- lineResult{err: err}
			return
		}
		c.lines <- lineResult{line: line}
	}
}

func (c *TerminalCollector) out() io.Writer {
	if c.stdout == nil {
		return os.Stdout
	}
	return c.stdout
}
