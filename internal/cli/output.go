package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// OutputFormatter handles three output modes: JSON, quiet, and human-readable
type OutputFormatter struct {
	JSON  bool
	Quiet bool

	// Out and ErrOut default to os.Stdout and os.Stderr
	Out    io.Writer
	ErrOut io.Writer
}

func (f *OutputFormatter) out() io.Writer {
	if f.Out != nil {
		return f.Out
	}
	return os.Stdout
}

func (f *OutputFormatter) errOut() io.Writer {
	if f.ErrOut != nil {
		return f.ErrOut
	}
	return os.Stderr
}

type idGetter interface{ GetID() int }

// Success outputs successful operation result
func (f *OutputFormatter) Success(data any) error {
	return f.Print(data, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%+v\n", data)
		return err
	})
}

// Print outputs data as an id (quiet), a JSON envelope, or via human
func (f *OutputFormatter) Print(data any, human func(w io.Writer) error) error {
	if f.Quiet {
		if g, ok := data.(idGetter); ok {
			_, err := fmt.Fprintln(f.out(), g.GetID())
			return err
		}
	}
	if f.JSON {
		return f.encode(map[string]any{
			"success": true,
			"data":    data,
		})
	}
	if f.Quiet {
		return nil
	}
	return human(f.out())
}

// List outputs a collection: one id per line (quiet), a JSON envelope, or
// a table
func (f *OutputFormatter) List(data any, ids []int, headers []string, rows [][]string) error {
	switch {
	case f.JSON:
		return f.encode(map[string]any{
			"success": true,
			"data":    data,
		})
	case f.Quiet:
		for _, id := range ids {
			if _, err := fmt.Fprintln(f.out(), strconv.Itoa(id)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(f.out(), "No results")
		return err
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(f.out(), t.Render())
	return err
}

// Message prints a human-only line; JSON and quiet modes stay silent
func (f *OutputFormatter) Message(format string, args ...any) {
	if f.JSON || f.Quiet {
		return
	}
	fmt.Fprintf(f.out(), format+"\n", args...)
}

// Error outputs error information
func (f *OutputFormatter) Error(code string, message string) error {
	return f.ErrorWithSuggestion(code, message, "")
}

// ErrorWithSuggestion outputs error information with an optional suggestion
func (f *OutputFormatter) ErrorWithSuggestion(code string, message string, suggestion string) error {
	if f.JSON {
		errData := map[string]any{
			"code":    code,
			"message": message,
		}
		if suggestion != "" {
			errData["suggestion"] = suggestion
		}
		return f.encode(map[string]any{
			"success": false,
			"error":   errData,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.errOut(), "❌ Error: %s\n", message)
	if suggestion != "" {
		fmt.Fprintf(f.errOut(), "💡 Suggestion: %s\n", suggestion)
	}
	return nil
}

// Fail reports err and returns it wrapped with the exit code the process
// should end with. code 0 derives the exit code from err.
func (f *OutputFormatter) Fail(code int, errCode string, err error, suggestion string) error {
	if code == 0 {
		code = ExitCode(err)
	}
	_ = f.ErrorWithSuggestion(errCode, err.Error(), suggestion)
	return &CommandError{Code: code, Err: err}
}

func (f *OutputFormatter) encode(v any) error {
	return sonic.ConfigStd.NewEncoder(f.out()).Encode(v)
}
