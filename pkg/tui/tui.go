// Package tui provides a terminal user interface for sonivoxrender
package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/sonivoxrender/pkg/eas"
	"github.com/james-see/sonivoxrender/pkg/pcm"
	"github.com/james-see/sonivoxrender/pkg/renderer"
)

// Phosphor color scheme
var (
	amber     = lipgloss.Color("#FFB000")
	paleAmber = lipgloss.Color("#FFD37A")
	steel     = lipgloss.Color("#B0B8C0")
	panel     = lipgloss.Color("#2A2A2A")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(panel).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(steel).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(paleAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4040")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateRendering
	StateResult
)

// Output formats offered by the menu.
const (
	FormatWAV = "wav"
	FormatRaw = "pcm"
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Format      string
}

var menuItems = []MenuItem{
	{Title: "MIDI → WAV", Description: "Render a MIDI file to a 16-bit WAV file", Format: FormatWAV},
	{Title: "MIDI → PCM", Description: "Render a MIDI file to raw 16-bit little-endian PCM", Format: FormatRaw},
	{Title: "Exit", Description: "Exit the application"},
}

// Options configures the renders started from the TUI.
type Options struct {
	// Library returns a fresh synthesizer library for each render.
	Library func() (eas.Library, error)

	Settings renderer.EffectSettings

	// Logger receives engine diagnostics. Defaults to a discarding logger,
	// since stderr belongs to the terminal UI.
	Logger *slog.Logger
}

// Model represents the TUI model
type Model struct {
	opts         Options
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	item         MenuItem
	result       renderer.Result
	err          error
	width        int
	height       int
}

// renderDoneMsg signals render completion
type renderDoneMsg struct {
	outputFile string
	result     renderer.Result
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	return Model{
		opts:       opts,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateRendering
			return m, tea.Batch(m.spinner.Tick, m.performRender())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case renderDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.item = menuItems[m.menuIndex]
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.result = renderer.Result{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performRender() tea.Cmd {
	opts, input, format := m.opts, m.selectedFile, m.item.Format
	return func() tea.Msg {
		output := strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
		res, err := Render(opts, input, output, format)
		return renderDoneMsg{outputFile: output, result: res, err: err}
	}
}

// Render runs one complete engine lifecycle for input and writes the audio
// to output as WAV or raw PCM.
func Render(opts Options, input, output, format string) (res renderer.Result, err error) {
	if opts.Library == nil {
		return res, errors.New("no synthesizer library configured")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := opts.Settings
	if err := s.Validate(); err != nil {
		return res, err
	}
	lib, err := opts.Library()
	if err != nil {
		return res, err
	}

	e, err := renderer.Initialize(lib, s.Verbosity, renderer.Options{Logger: opts.Logger, DebugOutput: io.Discard})
	if err != nil {
		return res, err
	}
	defer e.Shutdown()

	if s.DLSPath != "" {
		if err := e.LoadCollection(s.DLSPath); err != nil {
			return res, err
		}
	}
	if err := e.Apply(s); err != nil {
		return res, err
	}
	cfg, err := e.Config()
	if err != nil {
		return res, err
	}

	var out io.WriteCloser
	switch format {
	case FormatWAV:
		out, err = pcm.CreateWAV(output, pcm.Format{SampleRate: cfg.SampleRate, Channels: cfg.NumChannels})
	case FormatRaw:
		out, err = os.Create(output)
	default:
		err = fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return res, err
	}

	res, err = e.RenderFile(input, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(output)
	}
	return res, err
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(logo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateRendering:
		s.WriteString(m.viewRendering())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT OUTPUT "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paleAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	st := m.opts.Settings
	s.WriteString(statusStyle.Render(fmt.Sprintf("gain %d • reverb %s • chorus %s", st.PlaybackGain, st.ReverbName(), st.ChorusName())))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewRendering() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" RENDERING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Rendering %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  midi → %s", m.item.Format)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Render failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Render complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:    %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output:   %s\n", filepath.Base(m.outputFile)))
		s.WriteString(fmt.Sprintf("Frames:   %d\n", m.result.Frames))
		s.WriteString(fmt.Sprintf("Duration: %s", m.result.PlayLength.Round(time.Millisecond)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func logo() string {
	logo := `
  ___  ___  _  _ _____   _____  __  ___ ___ _  _ ___  ___ ___
 / __|/ _ \| \| |_ _\ \ / / _ \ \/ / | _ \ __| \| |   \| __| _ \
 \__ \ (_) | .' || | \ V / (_) >  <  |   / _|| .' | |) | _||   /
 |___/\___/|_|\_|___| \_/ \___/_/\_\ |_|_\___|_|\_|___/|___|_|_\
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
