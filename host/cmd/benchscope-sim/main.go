package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"benchscope/config"
	"benchscope/core"
	"benchscope/host/audio"
	"benchscope/script"
)

var (
	configPath = flag.String("config", "", "JSON board configuration")
	socketPath = flag.String("socket", "/tmp/benchscope.sock", "Unix socket served to benchscope-host")
	scriptPath = flag.String("script", "", "Lua script to run after boot")
	audioOut   = flag.Bool("audio", false, "Play the output on the sound card")
	refresh    = flag.Duration("refresh", 500*time.Millisecond, "Status line refresh period")
	debug      = flag.Bool("debug", false, "Print debug messages")
)

const heatStep = 2000 // milli-degrees per + or - key

// rawWriter turns "\n" into "\r\n" for a terminal in raw mode.
type rawWriter struct{ w io.Writer }

func (r rawWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(r.w, strings.ReplaceAll(string(p), "\n", "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if *audioOut {
		cfg.Audio.Enabled = true
	}

	out := rawWriter{os.Stdout}
	core.SetDebugWriter(func(msg string) {
		fmt.Fprintf(out, "\r%s\x1b[K\n", msg)
	})
	core.SetDebugEnabled(*debug)

	var ring *audio.Ring
	if cfg.Audio.Enabled {
		rate := 1e6 / float64(cfg.TickPeriodUS)
		ring = audio.NewRing(int(rate/4), rate, float64(cfg.Audio.SampleRate))
		spk, err := audio.Open(ring, cfg.Audio.SampleRate)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer spk.Close()
		spk.Start()
	}

	b, err := newBoard(cfg, core.NewTickerTimer(0), core.NewTickerTimer(0), ring)
	if err != nil {
		return err
	}
	defer b.close()

	os.Remove(*socketPath)
	ln, err := net.Listen("unix", *socketPath)
	if err != nil {
		return err
	}
	defer os.Remove(*socketPath)
	fmt.Printf("Serving on unix:%s\n", *socketPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, old)
		fmt.Fprint(out, "Arrows/WASD: joystick  +/-: temperature  q: quit\n")
		go readKeys(os.Stdin, b, cancel)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		core.RunHostClock(ctx.Done())
		return nil
	})
	g.Go(func() error {
		return b.serve(ctx, ln)
	})
	g.Go(func() error {
		return b.panel.Run(ctx)
	})
	g.Go(func() error {
		t := time.NewTicker(*refresh)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprint(out, "\n")
				return nil
			case <-t.C:
				fmt.Fprintf(out, "\r%s\x1b[K", b.status())
			}
		}
	})
	if *scriptPath != "" {
		g.Go(func() error {
			err := script.New(b.engine, out).RunFile(ctx, *scriptPath)
			if err != nil && ctx.Err() == nil {
				fmt.Fprintf(out, "\rscript: %v\x1b[K\n", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func readKeys(in io.Reader, b *board, quit func()) {
	buf := make([]byte, 16)
	for {
		n, err := in.Read(buf)
		if err != nil {
			quit()
			return
		}
		for _, k := range parseKeys(buf[:n]) {
			switch k.act {
			case actPress:
				b.press(k.pos)
			case actHeat:
				b.heat(heatStep)
			case actCool:
				b.heat(-heatStep)
			case actQuit:
				quit()
				return
			}
		}
	}
}
