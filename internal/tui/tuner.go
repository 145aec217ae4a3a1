package tui

import (
	"fmt"
	"strings"
	"time"

	"pocket/internal/tempo"
	"pocket/internal/tuner"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 50 * time.Millisecond
	meterHalfWidth  = 25
	inTuneCents     = 5
	closeCents      = 15
)

var (
	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))

	inTuneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	closeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75")).Bold(true)
)

var (
	tapKey   = key.NewBinding(key.WithKeys(" "))
	resetKey = key.NewBinding(key.WithKeys("r"))
	quitKey  = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))
)

// ReadingSource provides the latest live reading.
type ReadingSource interface {
	Latest() tuner.Reading
}

// TunerModel shows the live note with a cents meter, and turns space bar
// presses into a tap tempo.
type TunerModel struct {
	source  ReadingSource
	tracker *tempo.Tracker
	now     func() time.Time

	reading tuner.Reading
	bpm     tempo.BPM
	status  string
}

type tickMsg time.Time

// NewTunerModel polls source for readings and keeps taps for staleness.
func NewTunerModel(source ReadingSource, staleness time.Duration) TunerModel {
	return TunerModel{
		source:  source,
		tracker: tempo.NewTracker(staleness),
		now:     time.Now,
	}
}

// WithStatus sets a footer line, e.g. the input device in use.
func (m TunerModel) WithStatus(status string) TunerModel {
	m.status = status
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m TunerModel) Init() tea.Cmd {
	return tick()
}

func (m TunerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.reading = m.source.Latest()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, tapKey):
			m.bpm = m.tracker.Tap(m.now())
		case key.Matches(msg, resetKey):
			m.tracker.Reset()
			m.bpm = tempo.Unknown
		}
	}
	return m, nil
}

func (m TunerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Tuner"))
	sb.WriteString("\n\n")

	r := m.reading
	if r.Detected {
		sb.WriteString(noteStyle.Render(r.Label.Name()))
		sb.WriteString("\n\n")
		sb.WriteString(renderMeter(r.Label.Cents))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%.2f Hz  %+d cents\n", r.Frequency, r.Label.Cents))
	} else {
		sb.WriteString(noteStyle.Render("--"))
		sb.WriteString("\n\n")
		sb.WriteString(renderMeter(0))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("listening..."))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.bpm.Known() {
		sb.WriteString(highlightStyle.Render("Tempo: " + m.bpm.String()))
	} else {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("Tempo: tap space to set tempo (%s window)", m.tracker.Staleness())))
	}
	sb.WriteString("\n\n")

	if m.status != "" {
		sb.WriteString(dimStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(infoStyle.Render("space: Tap tempo • r: Reset taps • q: Quit"))
	return sb.String()
}

// renderMeter draws a needle at cents on a -50..+50 scale.
func renderMeter(cents int) string {
	cents = max(-50, min(50, cents))
	pos := meterHalfWidth + cents*meterHalfWidth/50

	cells := []rune(strings.Repeat("─", 2*meterHalfWidth+1))
	cells[meterHalfWidth] = '┼'
	cells[pos] = '█'

	style := offStyle
	switch a := max(cents, -cents); {
	case a <= inTuneCents:
		style = inTuneStyle
	case a <= closeCents:
		style = closeStyle
	}
	return "♭ " + style.Render(string(cells)) + " ♯"
}

// StartTunerUI runs the tuner view until the user quits.
func StartTunerUI(m TunerModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
