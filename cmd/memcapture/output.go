package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"memcapture/internal/format"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const defaultWidth = 80

// terminal describes where command output goes: a TTY gets color, the
// terminal's width and a pager; anything else gets plain lines.
type terminal struct {
	out  io.Writer
	file *os.File
	tty  bool
}

func newTerminal(out io.Writer) terminal {
	t := terminal{out: out}
	if f, ok := out.(*os.File); ok {
		t.file = f
		t.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

// width returns wrap when set, then the terminal width, then $COLUMNS.
func (t terminal) width(wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if t.file != nil {
		if w, _, err := term.GetSize(int(t.file.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if v, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && v > 0 {
		return v
	}
	return defaultWidth
}

// color resolves --color / --no-color, then NO_COLOR, then TTY detection.
func (t terminal) color(force, forceOff bool) bool {
	switch {
	case force:
		return true
	case forceOff, os.Getenv("NO_COLOR") != "":
		return false
	default:
		return t.tty
	}
}

// show pages lines on a TTY and writes them straight out otherwise.
func (t terminal) show(lines []string, color bool) error {
	if !t.tty {
		for _, line := range lines {
			if _, err := fmt.Fprintln(t.out, line); err != nil {
				return err
			}
		}
		return nil
	}
	return t.page(strings.Join(lines, "\n")+"\n", color)
}

// page runs $PAGER, or less quitting when the text fits one screen.
func (t terminal) page(text string, color bool) error {
	var cmd *exec.Cmd
	if pager := os.Getenv("PAGER"); pager != "" {
		cmd = exec.Command("sh", "-c", pager) // #nosec G204
	} else {
		args := []string{"-F"}
		if color {
			args = append(args, "-R")
		}
		cmd = exec.Command("less", args...) // #nosec G204
	}
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = t.out
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}
	return nil
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiAssistant = "\x1b[38;5;44m"
	ansiUser      = "\x1b[38;5;220m"
	ansiTool      = "\x1b[38;5;207m"
	ansiResult    = "\x1b[38;5;245m"
)

var kindColors = map[format.LineKind]string{
	format.LineTurn:       ansiBoldWhite,
	format.LineUser:       ansiUser,
	format.LineAssistant:  ansiAssistant,
	format.LineTool:       ansiTool,
	format.LineToolResult: ansiResult,
}

func paint(on bool, code, text string) string {
	if !on || code == "" {
		return text
	}
	return code + text + ansiReset
}

// renderTurn colors tag lines by block kind and indents block bodies.
func renderTurn(turn string, width int, color bool) []string {
	var lines []string
	for _, line := range format.RenderTurnLines(turn, width-2) {
		switch {
		case line.Text == "":
			lines = append(lines, "")
		case line.Tag:
			lines = append(lines, paint(color, kindColors[line.Kind], line.Text))
		default:
			lines = append(lines, paint(color, ansiSeparator, "|")+" "+line.Text)
		}
	}
	return lines
}
