// Package progress provides the timestamped activity log, written to file and stdout
// with colors following the form status.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/nexuslink/dealdesk/pkg/config"
	"github.com/nexuslink/dealdesk/pkg/status"
)

// Colors holds the console colors used by the logger.
type Colors struct {
	status    map[status.Status]*color.Color
	warn      *color.Color
	err       *color.Color
	timestamp *color.Color
	info      *color.Color
}

// NewColors builds Colors from config values in "r,g,b" form. a missing or malformed
// value falls back to a basic terminal color.
func NewColors(cfg config.ColorConfig) *Colors {
	return &Colors{
		status: map[status.Status]*color.Color{
			status.Idle:       rgbOr(cfg.Idle, color.FgBlue),
			status.Submitting: rgbOr(cfg.Submitting, color.FgCyan),
			status.Succeeded:  rgbOr(cfg.Succeeded, color.FgGreen),
			status.Failed:     rgbOr(cfg.Failed, color.FgMagenta),
		},
		warn:      rgbOr(cfg.Warn, color.FgYellow),
		err:       rgbOr(cfg.Error, color.FgRed),
		timestamp: rgbOr(cfg.Timestamp, color.FgWhite),
		info:      rgbOr(cfg.Info, color.FgWhite),
	}
}

// Status returns the color for a form status, info color if unknown.
func (c *Colors) Status(s status.Status) *color.Color {
	if col, ok := c.status[s]; ok {
		return col
	}
	return c.info
}

// Info returns the info color.
func (c *Colors) Info() *color.Color { return c.info }

func rgbOr(rgb string, fallback color.Attribute) *color.Color {
	parts := strings.Split(rgb, ",")
	if len(parts) != 3 {
		return color.New(fallback)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return color.New(fallback)
		}
		vals[i] = v
	}
	return color.RGB(vals[0], vals[1], vals[2])
}

// Config holds logger configuration.
type Config struct {
	Path    string // activity file, empty for stdout only
	Mode    string // terminal or dashboard, written to the file header
	NoColor bool   // disable color output (sets color.NoColor globally)
}

// Logger writes timestamped output to both file and stdout.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	stdout    io.Writer
	colors    *Colors
	startTime time.Time
	status    status.Status
}

// NewLogger creates a logger writing to stdout and, if cfg.Path is set, appending to the activity file.
func NewLogger(cfg Config, colors *Colors) (*Logger, error) {
	if cfg.NoColor {
		color.NoColor = true
	}
	if colors == nil {
		colors = NewColors(config.ColorConfig{})
	}

	l := &Logger{stdout: os.Stdout, colors: colors, startTime: time.Now(), status: status.Idle}
	if cfg.Path == "" {
		return l, nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create activity dir: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path from config
	if err != nil {
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	l.file = f

	mode := cfg.Mode
	if mode == "" {
		mode = "terminal"
	}
	l.writeFile("# DealDesk Activity Log\n")
	l.writeFile("Mode: %s\n", mode)
	l.writeFile("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writeFile("%s\n\n", strings.Repeat("-", 60))
	return l, nil
}

// Path returns the activity file path, empty if logging to stdout only.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// SetStatus sets the form status used to color subsequent messages.
func (l *Logger) SetStatus(s status.Status) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
}

// timestampFormat is the format for timestamps: YY-MM-DD HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// Print writes a timestamped message to both file and stdout.
func (l *Logger) Print(format string, args ...any) {
	l.PrintAligned(fmt.Sprintf(format, args...))
}

// PrintAligned writes text with timestamp, wrapping long lines to the terminal width.
// the first line is timestamped, continuation lines are indented under it.
func (l *Logger) PrintAligned(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(timestampFormat)
	msgColor := l.colors.Status(l.status)
	tsPrefix := l.colors.timestamp.Sprintf("[%s]", timestamp)
	indent := strings.Repeat(" ", len(timestamp)+3)

	width := getTerminalWidth()
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if len(line) > width {
			lines = append(lines, strings.Split(wrapText(line, width), "\n")...)
			continue
		}
		lines = append(lines, line)
	}

	for i, line := range lines {
		switch {
		case line == "":
			l.writeFile("\n")
			l.writeStdout("\n")
		case i == 0:
			l.writeFile("[%s] %s\n", timestamp, line)
			l.writeStdout("%s %s\n", tsPrefix, msgColor.Sprint(line))
		default:
			l.writeFile("%s%s\n", indent, line)
			l.writeStdout("%s%s\n", indent, msgColor.Sprint(line))
		}
	}
}

// Error writes an error message in the error color.
func (l *Logger) Error(format string, args ...any) {
	l.printLevel("ERROR", l.colors.err, format, args...)
}

// Warn writes a warning message in the warn color.
func (l *Logger) Warn(format string, args ...any) {
	l.printLevel("WARN", l.colors.warn, format, args...)
}

func (l *Logger) printLevel(level string, c *color.Color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format(timestampFormat)
	l.writeFile("[%s] %s: %s\n", timestamp, level, msg)
	l.writeStdout("%s %s\n", l.colors.timestamp.Sprintf("[%s]", timestamp), c.Sprintf("%s: %s", level, msg))
}

// Elapsed returns formatted elapsed time since start.
func (l *Logger) Elapsed() string {
	return humanize.RelTime(l.startTime, time.Now(), "", "")
}

// Close writes footer and closes the activity file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}

	l.writeFile("\n%s\n", strings.Repeat("-", 60))
	l.writeFile("Completed: %s (%s)\n", time.Now().Format("2006-01-02 15:04:05"), l.Elapsed())

	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close activity file: %w", err)
	}
	return nil
}

// FormatMoney formats a deal value as dollars with thousands separators, e.g. $12,500.00.
func FormatMoney(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// getTerminalWidth returns content width (total - 20 for timestamp), using COLUMNS env var
// or the terminal size. defaults to 80 columns if detection fails.
func getTerminalWidth() int {
	const minWidth = 40
	total := 80
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			total = w
		}
	} else if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		total = w
	}
	return max(total-20, minWidth)
}

// wrapText wraps text to specified width, breaking on word boundaries.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) <= width:
			result.WriteString(" ")
			lineLen += 1 + len(word)
		default:
			result.WriteString("\n")
			lineLen = len(word)
		}
		result.WriteString(word)
	}
	return result.String()
}

func (l *Logger) writeFile(format string, args ...any) {
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) writeStdout(format string, args ...any) {
	fmt.Fprintf(l.stdout, format, args...)
}
