// Command cli chats with the model from a terminal, keeping the same short
// rolling window the HTTP relay keeps, in memory only.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/anony/internal/completion"
	"github.com/wuwenbin0122/anony/internal/conversation"
	"github.com/wuwenbin0122/anony/internal/db"
	"github.com/wuwenbin0122/anony/internal/history"
	"github.com/wuwenbin0122/anony/internal/utils"
)

const replSession = "cli"

type responder interface {
	Respond(ctx context.Context, id, userText string) (string, error)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig(utils.WithStoreDriver(utils.DriverMemory))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to build: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := history.NewStore(db.NewMemory(), cfg.Chat.MaxTurns, cfg.Session.TTL)
	manager := conversation.NewManager(store, completion.NewGateway(cfg.Completion, logger), conversation.Options{
		SystemPrompt:    cfg.Chat.SystemPrompt,
		MaxMessageRunes: cfg.Chat.MaxMessageRunes,
	}, logger)

	if err := repl(ctx, os.Stdin, os.Stdout, manager); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// repl reads one message per line until EOF, exit, quit or ctx is done.
// Blank lines are skipped; failed exchanges are reported and the loop
// continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, conversations responder) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := readLines(ctx, in)

	fmt.Fprintln(out, "Anony (type 'exit' to quit)")
	for {
		fmt.Fprint(out, "You: ")

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out, "\nGoodbye!")
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if lowered := strings.ToLower(input); lowered == "exit" || lowered == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := conversations.Respond(ctx, replSession, input)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		fmt.Fprintf(out, "Anony: %s\n\n", reply)
	}
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. lines is closed when input ends; a scan error, if any, is
// sent on the returned error channel first.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	return lines, errs
}
