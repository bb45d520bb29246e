package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/settings"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/resolver"
)

func main() {
	var (
		input      = flag.String("i", "", "Content identifier or watch URL")
		mode       = flag.String("mode", "", "Force delivery mode: direct or piped")
		configPath = flag.String("config", "", "Path to a TOML config file")
		proxy      = flag.String("proxy", "", "Proxy URL (overrides config)")
		timeout    = flag.Duration("timeout", 2*time.Minute, "Overall resolution timeout")
	)
	flag.Parse()

	if *input == "" {
		fmt.Println("Usage: gregresolve -i <id-or-url> [-mode direct|piped] [-config file.toml]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	s, err := settings.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *proxy != "" {
		s.Proxy = *proxy
	}
	log := s.Logger()

	r, err := resolver.New(s.ResolverConfig(log))
	if err != nil {
		log.Fatalf("setup: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var desc *resolver.StreamDescriptor
	switch *mode {
	case "":
		desc, err = r.Resolve(ctx, *input)
	case "direct", "piped":
		desc, err = r.ResolveForced(ctx, *input, resolver.Mode(*mode))
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
	if err != nil {
		var exhausted *resolver.ExhaustedError
		if errors.As(err, &exhausted) {
			fmt.Fprintln(os.Stderr, "resolution exhausted:")
			for i, a := range exhausted.Attempts {
				fmt.Fprintf(os.Stderr, "  %d. persona=%s mode=%s itag=%d kind=%s status=%d err=%v\n",
					i+1, a.Persona, a.Mode, a.FormatID, a.Kind, a.Status, a.Err)
			}
			os.Exit(2)
		}
		log.Fatalf("resolve: %v", err)
	}
	defer desc.Close()

	fmt.Printf("Mode:      %s\n", desc.Mode)
	fmt.Printf("Persona:   %s\n", desc.Persona)
	fmt.Printf("Format:    itag %d (%s, %s)\n", desc.FormatID, desc.Codec, desc.Container)
	fmt.Printf("Duration:  %s\n", desc.Duration)
	if desc.Mode == resolver.ModeDirect {
		fmt.Printf("URL:       %s\n", desc.URL)
		for k := range desc.Headers {
			fmt.Printf("Header:    %s: %s\n", k, desc.Headers.Get(k))
		}
		return
	}

	// Piped descriptors carry live bytes. Sample the head to prove the
	// stream opened, then hang up.
	n, err := io.CopyN(io.Discard, desc.Body, 64*1024)
	fmt.Printf("Stream:    open, read %d bytes", n)
	if err != nil && err != io.EOF {
		fmt.Printf(" (read stopped: %v)", err)
	}
	fmt.Println()
}
