package main

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Luismorlan/qrchain/commands"
	"github.com/Luismorlan/qrchain/config"
	"github.com/Luismorlan/qrchain/layout"
	"github.com/Luismorlan/qrchain/ledger"
	"github.com/Luismorlan/qrchain/renderer"
	"github.com/Luismorlan/qrchain/scanner"
	"github.com/Luismorlan/qrchain/sensor"
	"github.com/Luismorlan/qrchain/signer"
	"github.com/Luismorlan/qrchain/station"
	"github.com/Luismorlan/qrchain/status"
	"github.com/jroimartin/gocui"
	"github.com/spf13/pflag"
)

//go:embed usage.txt
var usage string

// Parse commands from stdin. End of input stops the station.
func ParseCommand(ctx context.Context, cmd chan<- commands.Command) {
	reader := bufio.NewScanner(os.Stdin)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !reader.Scan() {
			break
		}
		c, err := commands.CreateCommand(reader.Text())
		if err != nil {
			log.Println(err)
			continue
		}
		select {
		case cmd <- c:
		case <-ctx.Done():
			return
		}
	}
	select {
	case cmd <- commands.Command{Op: commands.STOP}:
	case <-ctx.Done():
	}
}

// gui runs the console GUI until the user quits, which cancels the station.
type gui struct {
	g    *gocui.Gui
	done chan struct{}
}

func startGui(cmd chan<- commands.Command, cancel context.CancelFunc) (*gui, error) {
	g, err := layout.CreateGui(cmd, usage)
	if err != nil {
		return nil, err
	}
	ui := &gui{g: g, done: make(chan struct{})}
	go func() {
		defer close(ui.done)
		if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
			log.Println(err)
		}
		cancel()
	}()
	return ui, nil
}

func (ui *gui) close() {
	ui.g.Update(func(*gocui.Gui) error {
		return gocui.ErrQuit
	})
	<-ui.done
	ui.g.Close()
}

func run(cfg config.AppConfig) error {
	key, err := cfg.Key()
	if err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		log.Println("WARNING: using the built-in test key, set secret or secret_file for real codes")
	}
	verifier, err := signer.NewVerifier(key, cfg.RequireSignature)
	if err != nil {
		return err
	}

	l := ledger.New(cfg.ChainPath)
	lock, err := l.Lock()
	if err != nil {
		return err
	}
	defer lock.Unlock()

	sim, err := sensor.NewSimulator(cfg.Sensor, cfg.SensorSeed)
	if err != nil {
		return err
	}
	var rend renderer.Renderer = renderer.Discard{}
	if cfg.OutputDir != "" {
		if rend, err = renderer.NewPNG(cfg.OutputDir, cfg.QRSize); err != nil {
			return err
		}
	}

	var sc scanner.Scanner
	var input *scanner.ChanScanner
	if dir, ok := cfg.ScanDir(); ok {
		if sc, err = scanner.NewDirScanner(dir, 0); err != nil {
			return err
		}
	} else {
		input = scanner.NewChanScanner(16)
		sc = input
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A command channel that takes console input and hands it to the station.
	cmds := make(chan commands.Command, 16)
	var out io.Writer = os.Stdout
	if !cfg.DebugMode {
		ui, err := startGui(cmds, cancel)
		if err != nil {
			return err
		}
		defer log.SetOutput(os.Stderr)
		defer ui.close()
		out = layout.NewLogWriter(ui.g)
		log.SetOutput(out)
	} else {
		go ParseCommand(ctx, cmds)
	}
	reporter := station.NewConsoleReporter(out)

	st, err := station.New(station.Config{
		Ledger:      l,
		Verifier:    verifier,
		Scanner:     sc,
		Sensor:      sim,
		Renderer:    rend,
		Reporter:    reporter,
		ScanTimeout: cfg.ScanTimeout,
	})
	if err != nil {
		return err
	}
	if err := st.Start(); err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		health := status.NewServer()
		addr, _, err := health.ListenAndServe(cfg.StatusAddr)
		if err != nil {
			return err
		}
		defer health.Stop()
		health.SetServing(true)
		reporter.Infof("health endpoint on %s", addr)
	}

	console := station.NewConsole(st, input, cancel)
	go console.Serve(ctx, cmds)

	reporter.Infof("station %s, chain %s", st.ID(), cfg.ChainPath)
	return st.Run(ctx)
}

func main() {
	flags := config.NewFlags("station")
	fs := flags.FlagSet()
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: station [flags]\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConsole commands:\n%s", usage)
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	cfg, err := config.Load(flags.ConfigPath, flags)
	if err != nil {
		log.Fatal(err)
	}

	if err := run(cfg); err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			log.Fatalf("another station is using %s: %v", cfg.ChainPath, err)
		}
		log.Fatal(err)
	}
}
