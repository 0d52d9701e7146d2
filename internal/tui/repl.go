package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"chatbot/internal/usecase"
)

// REPL is the line surface used when stdin or stdout is not a terminal.
type REPL struct {
	chat     Submitter
	session  usecase.SessionState
	provider string
	in       io.Reader
	out      io.Writer

	you       *color.Color
	assistant *color.Color
	failed    *color.Color
	dim       *color.Color
}

func NewREPL(chat Submitter, sess usecase.SessionState, provider string, in io.Reader, out io.Writer) (*REPL, error) {
	if chat == nil || sess == nil {
		return nil, errors.New("tui: chat service and session must not be nil")
	}
	return &REPL{
		chat:      chat,
		session:   sess,
		provider:  provider,
		in:        in,
		out:       out,
		you:       color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgGreen, color.Bold),
		failed:    color.New(color.FgRed),
		dim:       color.New(color.Faint),
	}, nil
}

// Run reads one message per line until EOF or ctx is done. Blank lines are
// skipped. Cancellation is a normal way to quit and returns nil.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, Title)
	r.dim.Fprintf(r.out, "provider: %s  one message per line, EOF to quit\n", r.provider)

	lines, readErr := r.readLines(ctx)
	for {
		if ctx.Err() != nil {
			return nil
		}
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-readErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		r.dim.Fprintln(r.out, BusyText)
		ex, err := r.chat.Submit(ctx, r.session, line)
		if err != nil {
			r.failed.Fprintf(r.out, "message not sent: %s\n", usecase.CodeOf(err))
			continue
		}

		r.you.Fprint(r.out, labelUser)
		fmt.Fprintf(r.out, " %s\n", ex.User.Content)
		r.assistant.Fprint(r.out, labelAssistant)
		if ex.Failure != nil {
			r.failed.Fprintf(r.out, " %s\n", ex.Assistant.Content)
		} else {
			fmt.Fprintf(r.out, " %s\n", ex.Assistant.Content)
		}
	}
}

// readLines scans r.in on its own goroutine so a blocked read never holds up
// cancellation. lines is closed at EOF, after which readErr yields the scan
// error or nil. A goroutine blocked in Read stays blocked until the reader
// returns.
func (r *REPL) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- sc.Err()
	}()
	return lines, readErr
}
