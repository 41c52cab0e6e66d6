package layout

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Luismorlan/qrchain/commands"
	"github.com/jroimartin/gocui"
)

const (
	pastCmdView = "pastcommand"
	inputView   = "input"
	loggerView  = "logger"
	manualView  = "manual"
)

type cmd struct {
	str   string
	ready bool
	m     sync.RWMutex
}

var command cmd = cmd{}

// PastCmd is the ViewManager that logs past command.
type PastCmd struct {
	name string
}

// Input box for command.
type Input struct {
	name string
	cmd  chan<- commands.Command
}

type Logger struct {
	name string
}

type Manual struct {
	name string
	text string
}

func (pc *PastCmd) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom left corner.
	v, err := g.SetView(pc.name, 1, maxY*2/3, maxX/3, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Autoscroll = true
	v.Wrap = true

	command.m.Lock()
	defer command.m.Unlock()
	if command.ready {
		fmt.Fprintln(v, "> "+command.str)
	}
	command.ready = false

	return nil
}

func (i *Input) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom, full width.
	v, err := g.SetView(i.name, 1, maxY-5, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Autoscroll = true
	v.Editor = i
	v.Editable = true
	return nil
}

func (l *Logger) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Right side.
	v, err := g.SetView(l.name, maxX/3+1, 1, maxX-1, maxY-6)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Autoscroll = true
	v.Wrap = true
	return nil
}

func (m *Manual) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Top left corner.
	v, err := g.SetView(m.name, 1, 1, maxX/3, maxY*2/3-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Clear()
	fmt.Fprintln(v, m.text)
	return nil
}

func (i *Input) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyEnter:
		// Read buffer.
		s := v.Buffer()
		// Remove \n from string.
		s = strings.Replace(s, "\n", "", -1)
		op, err := commands.CreateCommand(s)
		if err == nil {
			// If a valid command, send to the station without blocking the GUI.
			select {
			case i.cmd <- op:
			default:
				err = errors.New("station busy, command dropped")
			}
		}
		command.m.Lock()
		command.str = s
		if err != nil {
			command.str = s + "\n" + err.Error()
		}
		command.ready = true
		command.m.Unlock()

		// Reset cursor.
		v.Clear()
		v.SetOrigin(0, 0)
		v.SetCursor(0, 0)

	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	}
}

func SetFocus(name string) func(g *gocui.Gui) error {
	return func(g *gocui.Gui) error {
		_, err := g.SetCurrentView(name)
		return err
	}
}

// Create a GUI, using the command channel to pass commands to the station.
// manual is shown in the top left view.
func CreateGui(cmd chan<- commands.Command, manual string) (*gocui.Gui, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	g.Cursor = true

	pc := &PastCmd{name: pastCmdView}
	l := &Logger{name: loggerView}
	m := &Manual{name: manualView, text: manual}
	input := &Input{name: inputView, cmd: cmd}
	focus := gocui.ManagerFunc(SetFocus(inputView))
	g.SetManager(pc, input, l, m, focus)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	return g, err
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// LogWriter appends everything written to it to the logger view. Writes are
// queued on the GUI loop, so it is safe from any goroutine.
type LogWriter struct {
	g *gocui.Gui
}

func NewLogWriter(g *gocui.Gui) *LogWriter {
	return &LogWriter{g: g}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	text := string(p)
	w.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(loggerView)
		if err != nil {
			// Not laid out yet.
			return nil
		}
		fmt.Fprint(v, text)
		return nil
	})
	return len(p), nil
}
