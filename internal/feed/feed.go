// Package feed runs watch mode: roster text arrives on a NATS subject,
// each message body being one complete roster file, and the parsed
// document JSON goes back out on the result subject.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"pairing_parser/internal/builder"
	"pairing_parser/internal/roster"
)

// Options configures the watcher.
type Options struct {
	URL        string
	Subject    string
	OutSubject string
	QueueGroup string
	Builder    builder.Options
}

// Watcher subscribes to the roster subject and parses what arrives.
type Watcher struct {
	nc   *nats.Conn
	opts Options
}

// result is the payload published after each parse.
type result struct {
	Document *roster.Document `json:"document,omitempty"`
	Stats    roster.Stats     `json:"stats"`
	Error    string           `json:"error,omitempty"`
}

// Connect establishes the NATS connection. The connection retries
// forever; watch mode is meant to ride out broker restarts.
func Connect(opts Options) (*Watcher, error) {
	nc, err := nats.Connect(opts.URL,
		nats.Name("pairing-parser"),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Watcher{nc: nc, opts: opts}, nil
}

// Run subscribes and blocks until the context is cancelled, then drains
// the subscription so in-flight messages finish.
func (w *Watcher) Run(ctx context.Context) error {
	sub, err := w.nc.QueueSubscribe(w.opts.Subject, w.opts.QueueGroup, w.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", w.opts.Subject, err)
	}
	log.Info().Str("subject", w.opts.Subject).Str("queue", w.opts.QueueGroup).Msg("watching for rosters")

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		log.Warn().Err(err).Msg("drain subscription")
	}
	if err := w.nc.Drain(); err != nil {
		return fmt.Errorf("drain connection: %w", err)
	}
	return nil
}

// Close tears the connection down without draining.
func (w *Watcher) Close() {
	w.nc.Close()
}

func (w *Watcher) handle(msg *nats.Msg) {
	start := time.Now()

	doc, stats, err := Parse(string(msg.Data), w.opts.Builder)
	res := result{Document: doc, Stats: stats}
	if err != nil {
		res.Error = err.Error()
		log.Error().Err(err).Int("bytes", len(msg.Data)).Msg("roster parse failed")
	} else {
		log.Info().
			Int("pairings", stats.PairingsParsed).
			Dur("elapsed", time.Since(start)).
			Msg("roster parsed")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("marshal result")
		return
	}

	if msg.Reply != "" {
		if err := msg.Respond(payload); err != nil {
			log.Warn().Err(err).Msg("respond")
		}
		return
	}
	if err := w.nc.Publish(w.opts.OutSubject, payload); err != nil {
		log.Warn().Err(err).Str("subject", w.opts.OutSubject).Msg("publish result")
	}
}

// Parse runs a complete roster text through a fresh builder. Each parse
// gets its own builder, so concurrent message handlers never share
// state.
func Parse(text string, opts builder.Options) (*roster.Document, roster.Stats, error) {
	b, err := builder.New(opts)
	if err != nil {
		return nil, roster.Stats{}, err
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if err := b.Consume(line, i+1); err != nil {
			return nil, b.Stats(), err
		}
	}

	doc, err := b.Finalize()
	stats := b.Stats()
	if err != nil {
		return doc, stats, err
	}
	doc.Metadata.LineCount = stats.TotalLines
	return doc, stats, nil
}
