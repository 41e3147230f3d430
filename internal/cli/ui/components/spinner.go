// Package components provides reusable terminal UI components for regmaint.
package components

import (
	"os"

	"github.com/bsamaha/docker-registry/internal/cli/ui/styles"
	"github.com/bsamaha/docker-registry/pkg/logger"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// SpinnerModel wraps the bubbles spinner with regmaint styling.
type SpinnerModel struct {
	spinner spinner.Model
	message string
	style   lipgloss.Style
}

// SpinnerOption configures a SpinnerModel.
type SpinnerOption func(*SpinnerModel)

// NewSpinner creates a new styled spinner.
func NewSpinner(opts ...SpinnerOption) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.ColorPrimary)

	m := SpinnerModel{
		spinner: s,
		message: "Working...",
		style:   styles.Theme.Body,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithMessage sets the spinner message.
func WithMessage(msg string) SpinnerOption {
	return func(m *SpinnerModel) {
		m.message = msg
	}
}

// WithSpinnerType sets the spinner animation type.
func WithSpinnerType(t spinner.Spinner) SpinnerOption {
	return func(m *SpinnerModel) {
		m.spinner.Spinner = t
	}
}

// Init implements tea.Model.
func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m SpinnerModel) View() string {
	return m.spinner.View() + " " + m.style.Render(m.message)
}

// SetMessage updates the spinner message.
func (m *SpinnerModel) SetMessage(msg string) {
	m.message = msg
}

// spinnerDoneMsg carries the result of the work the spinner is covering.
type spinnerDoneMsg struct {
	err error
}

// spinnerRunner animates a spinner until the wrapped work finishes.
type spinnerRunner struct {
	spinner SpinnerModel
	done    <-chan error
	err     error
}

func (m spinnerRunner) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), waitForWork(m.done))
}

func (m spinnerRunner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		// The wrapped work cannot be interrupted from the keyboard.
		return m, nil
	default:
		model, cmd := m.spinner.Update(msg)
		m.spinner = model.(SpinnerModel)
		return m, cmd
	}
}

func (m spinnerRunner) View() string {
	return m.spinner.View() + "\n"
}

func waitForWork(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return spinnerDoneMsg{err: <-done}
	}
}

// RunSpinner displays message with an animated spinner while fn runs.
// When stderr is not a terminal the spinner is skipped and the message
// is logged instead, so piped output stays clean.
func RunSpinner(message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		logger.Info(message)
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	m := spinnerRunner{
		spinner: NewSpinner(WithMessage(message)),
		done:    done,
	}

	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		// The terminal UI failed, but the work itself still finishes.
		return <-done
	}

	if runner, ok := final.(spinnerRunner); ok {
		return runner.err
	}
	return <-done
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
