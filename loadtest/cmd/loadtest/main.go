// Package main is the entry point for the moderation load test binary. It
// sends moderation requests over NATS from many concurrent workers and
// reports latency percentiles per request type.
//
// Usage:
//
//	loadtest [options]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/messaging"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/internal/protocol"
	"github.com/NoussaierSalaani/smuppy-mobile-sub011/loadtest/stats"
)

// samples mixes clean and abusive texts so every detector runs.
var samples = []string{
	"Great session at the gym today, who is joining tomorrow?",
	"Bonjour à tous, rendez-vous au parc à 18h",
	"just kys already",
	"look at bit.ly/3xYz12 for the prize",
	"call me at +33 6 12 34 56 78",
	"THIS IS THE BEST WORKOUT EVER DONE BY ANYONE",
	"noooooooooo way",
	"ferme ta gueule",
}

var contexts = []string{"post", "comment", "live_chat", "bio", "group", "event", "spot"}

func main() {
	url := flag.String("nats", messaging.DefaultNATSConfig().URL, "NATS server URL")
	workers := flag.Int("workers", 50, "Number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	scenario := flag.String("scenario", "mixed", "Request mix: filter, chat or mixed")
	timeout := flag.Duration("timeout", 2*time.Second, "Per-request timeout")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := messaging.DefaultNATSConfig()
	cfg.URL = *url
	cfg.Name = "moderator-loadtest"
	nc, err := messaging.NewNATSClient(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := nc.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("nats close")
		}
	}()

	fmt.Printf("Load test: %d workers for %s against %s (scenario=%s)\n", *workers, *duration, *url, *scenario)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	collector := stats.NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, nc, collector, id, *scenario, *timeout)
		}(w)
	}
	wg.Wait()

	collector.Report(os.Stdout)
}

func runWorker(ctx context.Context, nc *messaging.NATSClient, c *stats.Collector, id int, scenario string, timeout time.Duration) {
	for i := 0; ctx.Err() == nil; i++ {
		reqType, payload := nextRequest(id, i, scenario)
		data, err := json.Marshal(payload)
		if err != nil {
			c.AddError()
			continue
		}

		start := time.Now()
		reply, err := nc.Request(messaging.SubjectModerationRequest, data, timeout)
		if err != nil {
			c.AddError()
			continue
		}
		c.AddLatency(reqType, time.Since(start))

		var resp struct {
			Type   string `json:"type"`
			Accept bool   `json:"accept"`
		}
		if err := json.Unmarshal(reply, &resp); err != nil || resp.Type == protocol.TypeError {
			c.AddError()
			continue
		}
		if !resp.Accept {
			c.AddRejected(reqType)
		}
	}
}

func nextRequest(worker, i int, scenario string) (string, any) {
	text := samples[(worker+i)%len(samples)]
	useChat := scenario == "chat" || (scenario == "mixed" && i%2 == 1)
	if useChat {
		return protocol.TypeChatMessage, protocol.ChatMessageRequest{
			Type:     protocol.TypeChatMessage,
			ChatID:   fmt.Sprintf("load-chat-%d", worker/2),
			SenderID: fmt.Sprintf("load-user-%d", worker),
			Text:     text,
		}
	}
	return protocol.TypeFilter, protocol.FilterRequest{
		Type:     protocol.TypeFilter,
		Text:     text,
		Context:  contexts[i%len(contexts)],
		AuthorID: fmt.Sprintf("load-user-%d", worker),
	}
}
