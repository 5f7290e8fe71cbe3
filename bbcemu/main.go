package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	getopt "github.com/pborman/getopt/v2"
	"github.com/newhook/bbc/bbc/bbc"
	"github.com/newhook/bbc/bbc/keyboard"
	"github.com/newhook/bbc/monitor"
	"github.com/newhook/bbc/ui"
	"github.com/newhook/bbc/util/logger"
)

func main() {
	optMode := getopt.StringLong("mode", 'm', bbc.ModeJIT, "Execution mode: jit, interp or inturbo")
	optOS := getopt.StringLong("os", 'o', "", "OS ROM image (16KiB)")
	optROMs := getopt.ListLong("rom", 'r', "Sideways ROM image, bank:path (repeatable)")
	optDisc := getopt.StringLong("disc", 'd', "", "Disc image")
	optTape := getopt.StringLong("tape", 't', "", "Tape image")
	optReplay := getopt.StringLong("replay", 'k', "", "Keyboard replay file")
	optStopPC := getopt.StringLong("stop-pc", 'p', "", "Halt when the guest PC reaches this hex address")
	optStopCycles := getopt.Int64Long("stop-cycles", 'c', 0, "Halt after this many 2MHz cycles")
	optAccurate := getopt.BoolLong("accurate", 'a', "Per-instruction timing and IRQ checks")
	optFast := getopt.BoolLong("fast", 'f', "Uncapped speed (no render pacing)")
	optHeadless := getopt.BoolLong("headless", 0, "No window; batch/test operation")
	optMonitor := getopt.BoolLong("monitor", 0, "Attach the TUI monitor instead of the window")
	optTerminal := getopt.BoolLong("terminal", 0, "Bridge guest serial to stdin/stdout")
	optAbort := getopt.BoolLong("abort-on-unknown", 0, "Abort on undocumented opcodes instead of falling back")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 0, "Verbose logging")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	log, err := logger.New(*optLogFile, *optDebug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := bbc.Config{
		Mode:           *optMode,
		Accurate:       *optAccurate,
		AbortOnUnknown: *optAbort,
		Headless:       *optHeadless || *optMonitor,
		SyncRender:     !*optFast && !*optHeadless && !*optMonitor,
		Sideways:       map[int][]byte{},
		StopPC:         -1,
		StopCycles:     *optStopCycles,
	}

	if *optReplay != "" {
		data, err := os.ReadFile(*optReplay)
		if err != nil {
			log.Error("fatal", slog.Any("err", err))
			os.Exit(1)
		}
		events, err := keyboard.ParseReplay(data)
		if err != nil {
			log.Error("fatal", slog.Any("err", err))
			os.Exit(1)
		}
		cfg.Replay = events
	}

	code, err := run(cfg, *optOS, *optROMs, *optDisc, *optTape, *optStopPC, *optTerminal, *optMonitor, log)
	if err != nil {
		log.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
	os.Exit(int(code))
}

func run(cfg bbc.Config, osROM string, roms []string, disc, tape, stopPC string, terminal, withMonitor bool, log *slog.Logger) (int32, error) {
	if osROM == "" {
		return 0, fmt.Errorf("an OS ROM is required (-o)")
	}
	data, err := os.ReadFile(osROM)
	if err != nil {
		return 0, fmt.Errorf("OS ROM: %w", err)
	}
	cfg.OSROM = data

	for _, spec := range roms {
		bank, path, ok := strings.Cut(spec, ":")
		if !ok {
			return 0, fmt.Errorf("bad ROM spec %q, want bank:path", spec)
		}
		n, err := strconv.Atoi(bank)
		if err != nil {
			return 0, fmt.Errorf("bad ROM bank %q: %w", bank, err)
		}
		image, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("sideways ROM: %w", err)
		}
		cfg.Sideways[n] = image
	}

	if stopPC != "" {
		pc, err := strconv.ParseUint(strings.TrimPrefix(stopPC, "$"), 16, 16)
		if err != nil {
			return 0, fmt.Errorf("bad stop PC %q: %w", stopPC, err)
		}
		cfg.StopPC = int32(pc)
	}
	_ = terminal // serial bridge is an external collaborator

	machine, err := bbc.New(cfg, log)
	if err != nil {
		return 0, err
	}
	defer machine.Close()
	if disc != "" {
		machine.AddDisc(disc)
	}
	if tape != "" {
		machine.AddTape(tape)
	}
	machine.Reset()

	if withMonitor {
		// The monitor owns emulation time; no separate emulation thread.
		p := tea.NewProgram(monitor.New(machine))
		if _, err := p.Run(); err != nil {
			return 0, err
		}
		return 0, nil
	}

	if cfg.Headless {
		return machine.Run()
	}

	// Emulation thread and UI thread: the UI keeps the process main thread
	// (an SDL requirement), the machine runs beside it, and the two meet
	// only on the channels and the keyboard matrix.
	result := make(chan int32, 1)
	errc := make(chan error, 1)
	go func() {
		code, err := machine.Run()
		if err != nil {
			errc <- err
			return
		}
		result <- code
	}()

	front, err := ui.New(machine, cfg.SyncRender, log)
	if err != nil {
		return 0, err
	}
	front.Run()

	select {
	case err := <-errc:
		return 0, err
	case code := <-result:
		return code, nil
	}
}
