package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chatboat/chatboat/pkg/client"
	"github.com/chatboat/chatboat/pkg/logging"
	"github.com/chatboat/chatboat/pkg/transport"
)

func main() {
	addr := flag.String("addr", "localhost:10087", "chat server address")
	name := flag.String("name", "", "display name to join as (required)")
	logLevel := flag.String("log-level", "warn", "Log level: "+logging.LevelNames())
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: chat-client -name <name> [-addr host:port]")
		os.Exit(2)
	}

	if err := logging.Setup(logging.Options{Level: *logLevel, Output: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	t, err := transport.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", *addr, err)
		os.Exit(1)
	}

	client.PrintBanner(os.Stdout)

	if err := client.New(t, *name, os.Stdin, os.Stdout).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat session failed: %v\n", err)
		os.Exit(1)
	}
}
