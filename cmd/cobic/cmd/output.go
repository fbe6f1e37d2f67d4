package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/layer-3/cobic/core"
)

var (
	success   = color.New(color.FgGreen)
	failure   = color.New(color.FgRed)
	warn      = color.New(color.FgYellow)
	info      = color.New(color.FgCyan)
	highlight = color.New(color.FgMagenta, color.Bold)
	label     = color.New(color.Faint)
)

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func coins(d decimal.Decimal) string {
	return d.StringFixed(2) + " COBIC"
}

func field(w io.Writer, name string, value any) {
	label.Fprintf(w, "%-16s", name+":")
	fmt.Fprintln(w, value)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func optional(s *string) string {
	if v := core.StringValue(s); v != "" {
		return v
	}
	return "-"
}

// promptLine reads one line from stdin after printing prompt
func promptLine(out io.Writer, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
