package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"pocket/internal/audio"
	"pocket/internal/note"
	"pocket/internal/tuner"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fixedSource struct{ r tuner.Reading }

func (f *fixedSource) Latest() tuner.Reading { return f.r }

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update[M tea.Model](t *testing.T, m M, msg tea.Msg) (M, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(M)
	require.True(t, ok, "Update returned %T", next)
	return got, cmd
}

func TestTunerModelShowsReading(t *testing.T) {
	label, err := note.FrequencyToNote(445)
	require.NoError(t, err)
	src := &fixedSource{r: tuner.Reading{Detected: true, Frequency: 445, Label: label}}

	m := NewTunerModel(src, 0)
	assert.Contains(t, m.View(), "--")

	m, cmd := update(t, m, tickMsg(time.Now()))
	assert.NotNil(t, cmd, "tick reschedules itself")
	view := m.View()
	assert.Contains(t, view, "A4")
	assert.Contains(t, view, "445.00 Hz")
	assert.Contains(t, view, "+19 cents")
}

func TestTunerModelTapTempo(t *testing.T) {
	m := NewTunerModel(&fixedSource{}, 0)
	clock := time.UnixMilli(0)
	m.now = func() time.Time { return clock }

	m, _ = update(t, m, keyMsg(" "))
	assert.Contains(t, m.View(), "tap space to set tempo (3s window)")

	clock = clock.Add(500 * time.Millisecond)
	m, _ = update(t, m, keyMsg(" "))
	assert.Contains(t, m.View(), "120 BPM")

	m, _ = update(t, m, keyMsg("r"))
	assert.False(t, m.bpm.Known())
	assert.Contains(t, m.View(), "tap space to set tempo")
}

func TestTunerModelQuit(t *testing.T) {
	m := NewTunerModel(&fixedSource{}, 0)
	_, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderMeter(t *testing.T) {
	for _, cents := range []int{-80, -50, -3, 0, 12, 49, 50, 90} {
		got := renderMeter(cents)
		assert.Contains(t, got, "█", "cents %d", cents)
		assert.True(t, strings.HasPrefix(got, "♭ "))
	}
}

var testDevices = []audio.Device{
	{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000,
		LowInputLatency: 3 * time.Millisecond, HighInputLatency: 12 * time.Millisecond},
	{ID: 1, Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 2, Name: "USB Interface", MaxInputChannels: 1, DefaultSampleRate: 96000},
}

func readyDeviceList(t *testing.T) DeviceListModel {
	t.Helper()
	m := newDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil })
	msg := m.Init()()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 60})
	m, _ = update(t, m, msg)
	return m
}

func TestDeviceListModel(t *testing.T) {
	m := readyDeviceList(t)
	view := m.View()
	assert.Contains(t, view, "Audio Device List")
	assert.Contains(t, view, "Built-in Microphone (Input)")
	assert.Contains(t, view, "Built-in Output (Output)")

	// Output-only devices cannot be configured as input.
	m, _ = update(t, m, keyMsg("down"))
	m, _ = update(t, m, keyMsg("enter"))
	assert.Equal(t, ListScreen, m.activeScreen)

	m, _ = update(t, m, keyMsg("down"))
	m, _ = update(t, m, keyMsg("enter"))
	require.Equal(t, ConfigScreen, m.activeScreen)
	assert.Equal(t, 96000.0, sampleRates[m.sampleRateIndex])
	assert.Contains(t, m.View(), "input_device: 2")

	m, _ = update(t, m, keyMsg("esc"))
	assert.Equal(t, ListScreen, m.activeScreen)
}

func TestDeviceListModelError(t *testing.T) {
	m := newDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host API") })
	m, _ = update(t, m, m.Init()())
	assert.Contains(t, m.View(), "no host API")
}

func TestAudioSnippet(t *testing.T) {
	out, err := audioSnippet(testDevices[0], 48000)
	require.NoError(t, err)

	var doc struct {
		Audio struct {
			InputDevice int     `yaml:"input_device"`
			SampleRate  float64 `yaml:"sample_rate"`
			LowLatency  bool    `yaml:"low_latency"`
		} `yaml:"audio"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 0, doc.Audio.InputDevice)
	assert.Equal(t, 48000.0, doc.Audio.SampleRate)
	assert.True(t, doc.Audio.LowLatency)
}

func TestNearestRate(t *testing.T) {
	assert.Equal(t, 1, nearestRate(44100))
	assert.Equal(t, 2, nearestRate(47999))
	assert.Equal(t, 4, nearestRate(192000))
	assert.Equal(t, 0, nearestRate(8000))
}
