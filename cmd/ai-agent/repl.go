package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/ai"
)

// poolAgent is the part of *ai.Agent the REPL drives.
type poolAgent interface {
	Pool() string
	Ask(ctx context.Context, question string) (*ai.AskResult, error)
	RunSQL(ctx context.Context, sqlQuery string) ([]map[string]any, error)
	LatestSnapshot(ctx context.Context) (*ai.PoolSnapshot, error)
	Activity(ctx context.Context, window time.Duration) ([]ai.KindActivity, error)
}

const defaultWindow = 24 * time.Hour

const helpText = `Commands:
  :summary            reserves, shares and price from the newest event
  :activity [window]  events per kind over a window (default 24h), e.g. :activity 1h
  :sql <select>       run a read-only query over the pool events
  :help               show this help
  :quit               exit
Anything else is asked as a question about the pool.
`

var errUnknownCommand = errors.New("unknown command")

type repl struct {
	agent poolAgent
	out   io.Writer
	// pause between questions so a held Enter key does not flood the LLM
	cooldown time.Duration
}

func (r *repl) run(ctx context.Context, in *bufio.Scanner) {
	fmt.Fprintf(r.out, "Pool %s analytics (questions go to the LLM, :help for commands)\n\n", r.agent.Pool())

	for {
		fmt.Fprint(r.out, "> ")
		if !in.Scan() {
			fmt.Fprintln(r.out)
			return
		}
		quit, err := r.handle(ctx, in.Text())
		if err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
		if quit || ctx.Err() != nil {
			fmt.Fprintln(r.out, "bye")
			return
		}
	}
}

// handle runs one input line. An empty line or :quit ends the session.
func (r *repl) handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return true, nil
	}
	if !strings.HasPrefix(line, ":") {
		return false, r.ask(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help":
		fmt.Fprint(r.out, helpText)
		return false, nil
	case "summary":
		return false, r.summary(ctx)
	case "activity":
		return false, r.activity(ctx, arg)
	case "sql":
		return false, r.sql(ctx, arg)
	default:
		return false, fmt.Errorf("%w :%s (try :help)", errUnknownCommand, cmd)
	}
}

func (r *repl) ask(ctx context.Context, question string) error {
	if r.cooldown > 0 {
		time.Sleep(r.cooldown)
	}
	res, err := r.agent.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\nSQL:\n%s\n\n", res.SQL)
	if len(res.Kinds) > 0 {
		fmt.Fprintf(r.out, "Kinds: %v  Rows: %d\n\n", res.Kinds, res.Rows)
	}
	fmt.Fprintf(r.out, "Answer:\n%s\n\n", res.Answer)
	return nil
}

func (r *repl) summary(ctx context.Context) error {
	s, err := r.agent.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "pool %s at version %d (%s)\n", s.Pool, s.Version, s.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(r.out, "  reserve1      %s\n", s.Reserve1)
	fmt.Fprintf(r.out, "  reserve2      %s\n", s.Reserve2)
	fmt.Fprintf(r.out, "  total shares  %s\n", s.TotalShares)
	fmt.Fprintf(r.out, "  price         %.6g token2 per token1\n", s.Price())
	return nil
}

func (r *repl) activity(ctx context.Context, arg string) error {
	window := defaultWindow
	if arg != "" {
		d, err := time.ParseDuration(arg)
		if err != nil || d <= 0 {
			return fmt.Errorf("window %q must be a positive duration like 1h", arg)
		}
		window = d
	}

	acts, err := r.agent.Activity(ctx, window)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		fmt.Fprintf(r.out, "no events in the last %s\n", window)
		return nil
	}
	fmt.Fprintf(r.out, "last %s:\n", window)
	fmt.Fprintf(r.out, "  %-18s %8s %8s %24s %24s\n", "kind", "events", "accounts", "amount1", "amount2")
	for _, a := range acts {
		fmt.Fprintf(r.out, "  %-18s %8d %8d %24s %24s\n", a.Kind, a.Events, a.Accounts, a.Amount1, a.Amount2)
	}
	return nil
}

func (r *repl) sql(ctx context.Context, query string) error {
	if query == "" {
		return errors.New("usage: :sql SELECT ... FROM pool_events")
	}
	rows, err := r.agent.RunSQL(ctx, query)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
