package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-botnetsim/pkg/stream"
)

func main() {
	addr := flag.String("addr", "tcp://127.0.0.1:40899", "Stream address of a running botnet-sim (-stream-addr)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := stream.NewSubscriber(*addr)
	if err != nil {
		log.Fatalf("Failed to connect to stream: %v", err)
	}
	defer sub.Close()

	p := tea.NewProgram(initialModel(ctx, sub, *addr), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Fatalf("Error running program: %v", err)
	}
}
