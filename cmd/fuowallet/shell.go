package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nkiryanov/fuowallet/internal/events"
	"github.com/nkiryanov/fuowallet/internal/session"
)

const prompt = "fuowallet> "

// syncWriter serializes writes of shell and event listener
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

// Shell keeps wallet running: session watcher ends expired session in background
func cmdShell(ctx context.Context, a *App, _ []string) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		err := events.Listen(ctx, a.events, events.Handlers{
			Ended: func(e events.SessionEnded) {
				if e.Reason == session.ReasonLogout {
					return
				}
				_, _ = fmt.Fprintf(a.stdout, "\nSession ended (%s): please sign in again\n", e.Reason)
			},
		}, a.logger)
		if err != nil {
			a.logger.Error("Session events listener stopped", "error", err)
		}
	}()

	// Reader is not waited for: it may stay blocked on stdin until process exits
	lines := make(chan string)
	go func() {
		defer close(lines)
		readLines(ctx, a.stdin, lines)
	}()

	// Commands asking for secrets read the same lines
	a.lines = lines
	defer func() { a.lines = nil }()

	for {
		if _, err := fmt.Fprint(a.stdout, prompt); err != nil {
			return err
		}

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			_, _ = fmt.Fprintln(a.stdout, "Already in shell")
			continue
		}

		if err := a.Exec(ctx, args); err != nil {
			_, _ = fmt.Fprintf(a.stdout, "Error: %v\n", err)
		}
	}
}

// readLines sends stdin lines until EOF, read error or ctx is done
func readLines(ctx context.Context, r *bufio.Reader, lines chan<- string) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case lines <- strings.TrimRight(line, "\r\n"):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
