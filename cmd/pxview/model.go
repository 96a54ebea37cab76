package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// rectReader is the part of the client the viewer needs.
type rectReader interface {
	GetRect(ctx context.Context, r wire.Rect) ([]wire.Color, error)
}

type tickMsg time.Time

type frameMsg struct {
	rect   wire.Rect
	colors []wire.Color
	dur    time.Duration
	err    error
}

type model struct {
	c       rectReader
	info    wire.ServerInfo
	refresh time.Duration
	step    int

	width, height int // terminal cells
	ox, oy        int // canvas offset of the top-left pixel

	frame    frameMsg
	fetching bool
	frames   int
}

func newModel(c rectReader, info wire.ServerInfo, refresh time.Duration, step int) model {
	if step <= 0 {
		step = 1
	}
	return model{c: c, info: info, refresh: refresh, step: step}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("pixelflut viewer"),
		tick(m.refresh),
	)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// viewRect is the canvas region visible with the current size and offset.
// Two status lines are reserved at the bottom.
func (m model) viewRect() wire.Rect {
	rows := max(m.height-2, 0)
	w := min(m.width, int(m.info.Width)-m.ox, wire.MaxRectDim)
	h := min(rows*2, int(m.info.Height)-m.oy, wire.MaxRectDim)
	if w <= 0 || h <= 0 {
		return wire.Rect{}
	}
	return wire.Rect{X: uint16(m.ox), Y: uint16(m.oy), W: uint16(w), H: uint16(h)}
}

func (m model) fetch() tea.Cmd {
	r := m.viewRect()
	c := m.c
	return func() tea.Msg {
		if r.Area() == 0 {
			return frameMsg{rect: r}
		}
		start := time.Now()
		colors, err := c.GetRect(context.Background(), r)
		return frameMsg{rect: r, colors: colors, dur: time.Since(start), err: err}
	}
}

func (m *model) pan(dx, dy int) {
	m.ox = clamp(m.ox+dx, 0, max(int(m.info.Width)-1, 0))
	m.oy = clamp(m.oy+dy, 0, max(int(m.info.Height)-1, 0))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.pan(-m.step, 0)
		case "right", "l":
			m.pan(m.step, 0)
		case "up", "k":
			m.pan(0, -m.step)
		case "down", "j":
			m.pan(0, m.step)
		case "home":
			m.ox, m.oy = 0, 0
		default:
			return m, nil
		}
		if !m.fetching {
			m.fetching = true
			return m, m.fetch()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.fetching {
			return m, tick(m.refresh)
		}
		m.fetching = true
		return m, tea.Batch(m.fetch(), tick(m.refresh))

	case frameMsg:
		m.fetching = false
		m.frame = msg
		if msg.err == nil {
			m.frames++
		}
		return m, nil
	}
	return m, nil
}

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func (m model) View() string {
	var b strings.Builder
	f := m.frame
	if f.err != nil {
		b.WriteString(errStyle.Render("read failed: " + f.err.Error()))
		b.WriteString("\n")
	} else {
		b.WriteString(renderHalfBlocks(f.colors, int(f.rect.W), int(f.rect.H)))
	}
	status := fmt.Sprintf(" %dx%d canvas  view %v  frame %d  %v ",
		m.info.Width, m.info.Height, f.rect, m.frames, f.dur.Round(time.Millisecond))
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(" arrows/hjkl pan  home reset  q quit"))
	return b.String()
}

// renderHalfBlocks draws w x h row-major colors, two rows per line. The
// upper pixel is the foreground of '▀', the lower one the background.
func renderHalfBlocks(colors []wire.Color, w, h int) string {
	if w <= 0 || h <= 0 || len(colors) < w*h {
		return ""
	}
	var b strings.Builder
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			st := lipgloss.NewStyle().Foreground(hexColor(colors[y*w+x]))
			if y+1 < h {
				st = st.Background(hexColor(colors[(y+1)*w+x]))
			}
			b.WriteString(st.Render("▀"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hexColor(c wire.Color) lipgloss.Color { return lipgloss.Color("#" + c.String()) }

func clamp(v, lo, hi int) int { return max(lo, min(v, hi)) }
