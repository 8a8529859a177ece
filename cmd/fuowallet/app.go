package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/nkiryanov/fuowallet/internal/api"
	"github.com/nkiryanov/fuowallet/internal/events"
	"github.com/nkiryanov/fuowallet/internal/guard"
	"github.com/nkiryanov/fuowallet/internal/logger"
	"github.com/nkiryanov/fuowallet/internal/navigator"
	"github.com/nkiryanov/fuowallet/internal/output"
	"github.com/nkiryanov/fuowallet/internal/session"
	"github.com/nkiryanov/fuowallet/internal/storage"
	"github.com/nkiryanov/fuowallet/internal/transport"
)

// App is the wallet wired together: one session store shared by everything
type App struct {
	logger logger.Logger
	store  *session.Store
	router *navigator.Router
	client *api.Client
	events *gochannel.GoChannel
	format output.Format
	out    output.Formatter

	stdin  *bufio.Reader
	stdout io.Writer

	// Lines of stdin while shell is running
	lines <-chan string

	closeStorage storage.CloseFunc
}

func NewApp(ctx context.Context, c *Config, stdin io.Reader, stdout io.Writer) (*App, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	format, err := output.ParseFormat(c.Output)
	if err != nil {
		return nil, err
	}

	st, closeStorage, err := storage.Open(ctx, c.Storage, c.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error while opening session storage. Err: %w", err)
	}

	pubsub := events.NewInProcess(l)

	store, err := session.New(st, session.Config{
		CheckInterval: c.CheckInterval,
		Logger:        l.With("component", "session"),
		Observer:      events.NewPublisher(pubsub, l),
	})
	if err != nil {
		_ = closeStorage()
		return nil, fmt.Errorf("error while creating session store. Err: %w", err)
	}

	// Session has to be known before any command is routed
	if err := store.Initialize(ctx); err != nil {
		l.Warn("Session restored with errors", "error", err)
	}

	router := navigator.New(store, l.With("component", "navigator"))

	base := transport.NewHTTPTransport()
	client := api.NewClient(api.Config{
		BaseURL: c.APIURL,
		Transport: transport.Chain(base,
			transport.RequestID(),
			transport.Logger(l),
			guard.New(store, router, l.With("component", "guard")),
		),
		PublicTransport: transport.Chain(base,
			transport.RequestID(),
			transport.Logger(l),
		),
		Timeout: c.Timeout,
		Logger:  l,
	})

	return &App{
		logger:       l,
		store:        store,
		router:       router,
		client:       client,
		events:       pubsub,
		format:       format,
		out:          output.NewFormatter(format),
		stdin:        bufio.NewReader(stdin),
		stdout:       &syncWriter{w: stdout},
		closeStorage: closeStorage,
	}, nil
}

func (a *App) Close() error {
	a.store.Close()
	return errors.Join(a.events.Close(), a.closeStorage())
}

// print data in configured format
func (a *App) print(data any) error {
	return a.out.Format(a.stdout, data)
}

// message prints line for humans or {"message": ...} for machines
func (a *App) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if a.format == output.FormatTable {
		_, err := fmt.Fprintln(a.stdout, msg)
		return err
	}
	return a.print(map[string]string{"message": msg})
}
