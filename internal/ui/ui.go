package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/mdalign/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)

	AddedColor   = color.New(color.FgGreen)
	RemovedColor = color.New(color.FgRed)
	HunkColor    = color.New(color.FgCyan)
)

// Out is where messages are written. It defaults to a color-aware stderr.
var Out io.Writer = color.Error

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Out, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Out, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Out, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Out, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Out, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Out, "  "+format+"\n", a...)
}

// --- Diffs ---

// ColorDiff colors the lines of a unified diff.
func ColorDiff(diff string) string {
	var b strings.Builder
	for line := range strings.Lines(diff) {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(HeaderColor.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(HunkColor.Sprint(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(AddedColor.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(RemovedColor.Sprint(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

// --- Summaries ---

// PrintSummary writes a plain summary for non-interactive runs.
func PrintSummary(title string, s model.Summary) {
	Header("\n--- %s ---", title)
	if s.Message != "" {
		Info(s.Message)
	}

	if len(s.Modified) == 0 && len(s.Failed) == 0 && s.Message == "" {
		Info("No files were updated.")
		return
	}
	if len(s.Modified) > 0 {
		Success("Aligned %d file(s):", len(s.Modified))
		for _, f := range s.Modified {
			fmt.Fprintf(Out, "  - %s\n", f)
		}
	}
	if len(s.Unchanged) > 0 {
		Info("%d file(s) already aligned.", len(s.Unchanged))
	}
	if len(s.Failed) > 0 {
		Error("Failed to process %d file(s):", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(Out, "  - %s\n", f)
		}
	}
}
