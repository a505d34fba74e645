package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"

	"benchscope/host/mcu"
	"benchscope/host/serial"
	"benchscope/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path, or unix:/path for the simulator")
	baud    = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
	wait    = flag.Duration("wait", 200*time.Millisecond, "How long to collect responses of a command")
	execute = flag.String("c", "", "Run these ';' separated commands and exit")
	verbose = flag.Bool("verbose", false, "Print the dictionary after connecting")
)

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	conn := mcu.NewMCU()
	fmt.Printf("Connecting to %s...\n", *device)
	if err := conn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Dictionary retrieved: %d bytes\n", len(conn.GetDictionaryRaw()))
	if *verbose {
		conn.PrintDictionary(os.Stdout)
	}

	if *execute != "" {
		for _, line := range strings.Split(*execute, ";") {
			if err := run(conn, line, os.Stdout); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if err := run(conn, scanner.Text(), os.Stdout); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Println("Goodbye!")
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

var errQuit = errors.New("quit")

// run executes one command line. Lines are split like a shell, so
// arguments may be quoted.
func run(conn *mcu.MCU, line string, w io.Writer) error {
	fields, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		printHelp(conn, w)
		return nil
	case "dict":
		conn.PrintDictionary(w)
		return nil
	case "raw":
		raw := conn.GetDictionaryRaw()
		fmt.Fprintf(w, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)
		return nil
	case "stats":
		st := conn.Stats()
		fmt.Fprintf(w, "frames=%d discarded=%d bad_crc=%d resyncs=%d\n", st.Frames, st.Discarded, st.BadCRC, st.Resyncs)
		return nil
	case "sleep":
		if len(fields) < 2 {
			return fmt.Errorf("usage: sleep <duration>")
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil {
			return err
		}
		time.Sleep(d)
		return nil
	}

	name, values, err := protocol.ParseCommandLine(fields)
	if err != nil {
		return err
	}

	// fn_gen commands always end with fn_gen_result.
	if strings.HasPrefix(name, "fn_gen_") {
		resps, err := conn.Request(name, values, "fn_gen_result", time.Second)
		for _, r := range resps {
			fmt.Fprintln(w, r)
		}
		return err
	}

	if err := conn.SendCommand(name, values); err != nil {
		return err
	}
	deadline := time.Now().Add(*wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		resp, err := conn.ReceiveResponse(remaining)
		if err != nil {
			return nil
		}
		fmt.Fprintln(w, resp)
	}
}

func printHelp(conn *mcu.MCU, w io.Writer) {
	fmt.Fprintln(w, "Built-in commands:")
	fmt.Fprintln(w, "  help           - Show this help message")
	fmt.Fprintln(w, "  dict           - Print dictionary summary")
	fmt.Fprintln(w, "  raw            - Print raw dictionary data")
	fmt.Fprintln(w, "  stats          - Print link statistics")
	fmt.Fprintln(w, "  sleep <d>      - Pause, e.g. sleep 500ms")
	fmt.Fprintln(w, "  quit/exit/q    - Exit the program")
	fmt.Fprintln(w, "Board commands (name key=value ...):")
	for _, f := range conn.CommandFormats() {
		if f.Name == "identify" {
			continue
		}
		fmt.Fprintf(w, "  %s\n", f)
	}
}
