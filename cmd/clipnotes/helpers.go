package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipnotes/internal/api"
	"clipnotes/internal/reasoning"
)

func titleCase(value string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	if cleaned == "" {
		return ""
	}
	return cases.Title(language.Und).String(cleaned)
}

func writerIsTerminal(w io.Writer) bool {
	type fdWriter interface{ Fd() uintptr }
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

const (
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiReset  = "\x1b[0m"
)

// formatStatus colorizes a clip status when writing to a terminal.
func formatStatus(w io.Writer, status api.ClipStatus) string {
	label := titleCase(string(status))
	if !writerIsTerminal(w) {
		return label
	}
	switch status {
	case api.ClipReady:
		return ansiGreen + label + ansiReset
	case api.ClipFailed:
		return ansiRed + label + ansiReset
	case api.ClipProcessing, api.ClipPending:
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func formatConfidence(confidence *float64) string {
	if confidence == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *confidence*100)
}

func formatRange(r *[2]float64) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%s-%s", formatSeconds(r[0]), formatSeconds(r[1]))
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	minutes := total / 60
	remainder := seconds - float64(minutes*60)
	if remainder == float64(int(remainder)) {
		return fmt.Sprintf("%02d:%02d", minutes, int(remainder))
	}
	return fmt.Sprintf("%02d:%05.2f", minutes, remainder)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

// printRemediation surfaces an API error's remediation as a "Next steps" hint.
func printRemediation(err error) {
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.Remediation == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "Next steps: %s\n", apiErr.Remediation)
}

func answerLabel(answer reasoning.Answer) string {
	switch answer {
	case reasoning.AnswerClipA:
		return "Clip A"
	case reasoning.AnswerClipB:
		return "Clip B"
	default:
		return titleCase(string(answer))
	}
}
