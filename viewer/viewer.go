// Package viewer plays decoded video frames in the terminal.
//
// Frames are drawn with ANSI 24-bit colors on upper half-block characters,
// so every terminal cell shows two vertical pixels. [Model] is a bubbletea
// model: create it with [New] and run it with [tea.NewProgram].
package viewer

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"go.jacobcolvin.com/stillframe/frame"
	"go.jacobcolvin.com/stillframe/log"
)

const (
	defaultFPS  = 30
	infoLines   = 5
	defaultCols = 80
	defaultRows = 24
)

// ErrRange indicates a start frame at or after the end frame.
var ErrRange = errors.New("invalid frame range")

// Options configures a [Model].
type Options struct {
	// Logs, if set, supplies the log line shown in the info overlay.
	Logs *log.Subscription
	// FPS is the playback rate. Values <= 0 use 30.
	FPS float64
	// Start is the first frame shown.
	Start int
	// End is the exclusive end of the played range. 0 means the number of
	// frames.
	End int
	// Width and Height are the initial terminal size in cells.
	Width  int
	Height int
	// Paused starts playback paused.
	Paused bool
	// ShowInfo shows the info overlay.
	ShowInfo bool
	// AutoClose quits after the last frame instead of pausing on it.
	AutoClose bool
}

type tickMsg struct {
	gen int
}

type logMsg struct {
	line string
	ok   bool
}

// Model is the bubbletea model of the viewer.
type Model struct {
	logs       *log.Subscription
	fitted     map[int]*image.RGBA
	frames     []image.Image
	lastLog    string
	buf        strings.Builder
	fittedSize frame.Size
	fps        float64
	start      int
	end        int
	index      int
	cols       int
	rows       int
	gen        int
	paused     bool
	showInfo   bool
	autoClose  bool
	done       bool
}

// New creates a [Model] over frames. It returns an error wrapping [ErrRange]
// when the requested range is empty or outside the frames.
func New(frames []image.Image, opts Options) (*Model, error) {
	end := opts.End
	if end == 0 || end > len(frames) {
		end = len(frames)
	}

	if opts.Start < 0 || opts.Start >= end {
		return nil, fmt.Errorf("%w: start %d, end %d, %d frames", ErrRange, opts.Start, end, len(frames))
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	m := &Model{
		logs:      opts.Logs,
		fitted:    map[int]*image.RGBA{},
		frames:    frames,
		fps:       fps,
		start:     opts.Start,
		end:       end,
		index:     opts.Start,
		cols:      opts.Width,
		rows:      opts.Height,
		paused:    opts.Paused,
		showInfo:  opts.ShowInfo,
		autoClose: opts.AutoClose,
	}

	if m.cols <= 0 || m.rows <= 0 {
		m.cols, m.rows = defaultCols, defaultRows
	}

	return m, nil
}

// Index returns the current frame index.
func (m *Model) Index() int { return m.index }

// Paused reports whether playback is paused.
func (m *Model) Paused() bool { return m.paused }

// Init starts playback and log delivery.
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if !m.paused {
		cmds = append(cmds, m.tick())
	}

	if m.logs != nil {
		cmds = append(cmds, m.waitLog())
	}

	return tea.Batch(cmds...)
}

func (m *Model) tick() tea.Cmd {
	gen := m.gen

	return tea.Tick(time.Duration(float64(time.Second)/m.fps), func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m *Model) waitLog() tea.Cmd {
	ch := m.logs.C()

	return func() tea.Msg {
		line, ok := <-ch

		return logMsg{line: line, ok: ok}
	}
}

// Update handles keys, ticks, resizes and log lines.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m, m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height

	case tickMsg:
		if msg.gen != m.gen || m.paused || m.done {
			return m, nil
		}

		if m.index+1 >= m.end {
			return m, m.finish()
		}

		m.index++

		return m, m.tick()

	case logMsg:
		if !msg.ok {
			return m, nil
		}

		m.lastLog = msg.line
		if m.logs == nil {
			return m, nil
		}

		return m, m.waitLog()
	}

	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "esc", "ctrl+c":
		m.done = true

		return tea.Quit

	case "space":
		return m.togglePause()

	case "right":
		if m.paused {
			m.index = min(m.index+1, m.end-1)
		}

	case "left":
		if m.paused {
			m.index = max(m.index-1, m.start)
		}

	case "i":
		m.showInfo = !m.showInfo

	case "a":
		m.autoClose = !m.autoClose
	}

	return nil
}

func (m *Model) togglePause() tea.Cmd {
	m.paused = !m.paused
	m.gen++

	if m.paused {
		return nil
	}

	if m.index+1 >= m.end {
		m.index = m.start
	}

	return m.tick()
}

// finish handles reaching the last frame while playing.
func (m *Model) finish() tea.Cmd {
	if m.autoClose {
		m.done = true

		return tea.Quit
	}

	m.paused = true
	m.gen++

	return nil
}

// current returns the current frame fitted to the free terminal area. Fitted
// frames are cached until the area changes.
func (m *Model) current() *image.RGBA {
	rows := m.rows
	if m.showInfo {
		rows -= infoLines
	}

	size := frame.Size{Width: max(m.cols, 1), Height: max(rows, 1) * 2}
	if size != m.fittedSize {
		clear(m.fitted)
		m.fittedSize = size
	}

	img, ok := m.fitted[m.index]
	if ok {
		return img
	}

	img = frame.Contain(m.frames[m.index], size)
	m.fitted[m.index] = img

	return img
}

// View renders the current frame and the info overlay.
func (m *Model) View() tea.View {
	m.buf.Reset()
	renderFrame(m.current(), &m.buf)

	if m.showInfo {
		m.buf.WriteString(m.info())
	}

	v := tea.NewView(m.buf.String())
	v.AltScreen = true

	return v
}

func (m *Model) info() string {
	state := "Playing"
	if m.paused {
		state = "Paused"
	}

	autoClose := "OFF"
	if m.autoClose {
		autoClose = "ON"
	}

	lines := []string{
		fmt.Sprintf("Frame: %03d / %03d", m.index, m.end-1),
		fmt.Sprintf("%s / %s", clock(float64(m.index)/m.fps), clock(float64(m.end-1)/m.fps)),
		"Autoclose: " + autoClose,
		state,
		truncate(m.lastLog, m.cols),
	}

	return strings.Join(lines, "\n")
}
