package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lotusmail/lotus"
	"github.com/lotusmail/lotus/events"
	"github.com/lotusmail/lotus/folder"
	"github.com/lotusmail/lotus/internal/config"
	"github.com/lotusmail/lotus/profiling"
)

const connectTimeout = 30 * time.Second

// session is a connected client whose folder tree has been resolved.
type session struct {
	client  *lotus.Client
	roots   []*folder.Root
	counter *profiling.Counter

	closers []io.Closer
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logrus.SetLevel(level)

	s := &session{}

	opts := []lotus.Option{
		lotus.WithToken(cfg.Token),
		lotus.WithCacheTTL(time.Duration(cfg.CacheTTL)),
	}

	if profile {
		s.counter = profiling.NewCounter(nil)

		opts = append(opts, lotus.WithProfiler(&profiling.CounterBuilder{Counter: s.counter}))
	}

	if wireLog {
		loggerIn := logrus.StandardLogger().WriterLevel(logrus.TraceLevel)
		loggerOut := logrus.StandardLogger().WriterLevel(logrus.TraceLevel)

		s.closers = append(s.closers, loggerIn, loggerOut)

		opts = append(opts, lotus.WithWireLogger(loggerIn, loggerOut))
	}

	s.client = lotus.New(cfg.Address, opts...)

	eventCh := s.client.AddWatcher(events.FoldersResolved{}, events.ServerNotice{}, events.Disconnected{})
	defer s.client.RemoveWatcher(eventCh)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := s.client.Connect(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to connect to %v: %w", cfg.Address, err)
	}

	for {
		select {
		case event := <-eventCh:
			switch event := event.(type) {
			case events.FoldersResolved:
				logrus.WithField("folders", event.Resolved).Debug("Folder tree ready")
				s.roots = event.Roots

				return s, nil

			case events.ServerNotice:
				s.close()
				return nil, fmt.Errorf("gateway refused the session: %v", event.Text)

			case events.Disconnected:
				s.close()
				return nil, fmt.Errorf("connection lost: %w", event.Err)
			}

		case <-ctx.Done():
			s.close()
			return nil, fmt.Errorf("waiting for the folder list: %w", ctx.Err())
		}
	}
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		logrus.WithError(err).Debug("Failed to close client")
	}

	for _, closer := range s.closers {
		_ = closer.Close()
	}

	if s.counter != nil {
		if err := s.counter.Write(os.Stderr); err != nil {
			logrus.WithError(err).Warn("Failed to write profile")
		}
	}
}
