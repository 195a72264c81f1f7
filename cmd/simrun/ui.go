package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	simruntime "github.com/simforge/sim-runtime"
	"github.com/simforge/sim-runtime/config"
	simrt "github.com/simforge/sim-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statusStyles = map[simruntime.Status]lipgloss.Style{
		simruntime.Ready:    lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		simruntime.Unstable: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		simruntime.Failed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLen = 120

type uiState int

const (
	stateSelectModule uiState = iota
	stateRunning
)

type uiModel struct {
	ctx context.Context
	cfg *config.Config
	reg *simrt.Registry

	state    uiState
	modules  []string
	selected int
	err      error

	inst    *simrt.Instance
	stepper *simrt.Stepper
	paused  bool

	boolInputs []simrt.Slot
	boolState  []bool
	plotSlot   simrt.Slot
	havePlot   bool
	history    []float64

	editing bool
	edit    textinput.Model
}

type tickMsg time.Time

func tickCmd(dt float64) tea.Cmd {
	return tea.Tick(time.Duration(dt*float64(time.Second)), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newUIModel(ctx context.Context, cfg *config.Config, reg *simrt.Registry) *uiModel {
	return &uiModel{
		ctx:     ctx,
		cfg:     cfg,
		reg:     reg,
		state:   stateSelectModule,
		modules: findArtifacts(cfg.SearchPaths),
		stepper: simrt.NewStepper(nil),
	}
}

func (m *uiModel) Init() tea.Cmd {
	return nil
}

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.state != stateRunning || m.paused {
			return m, nil
		}
		m.advance()
		return m, tickCmd(m.cfg.DefaultDt)
	}
	return m, nil
}

func (m *uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			m.applyEdit()
			m.editing = false
			return m, nil
		case "esc":
			m.editing = false
			return m, nil
		}
		var cmd tea.Cmd
		m.edit, cmd = m.edit.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.releaseInstance()
		return m, tea.Quit

	case "up", "k":
		if m.state == stateSelectModule && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectModule && m.selected < len(m.modules)-1 {
			m.selected++
		}

	case "enter":
		if m.state == stateSelectModule && len(m.modules) > 0 {
			if err := m.startInstance(m.modules[m.selected]); err != nil {
				m.err = err
				return m, nil
			}
			m.state = stateRunning
			return m, tickCmd(m.cfg.DefaultDt)
		}

	case "esc":
		if m.state == stateRunning {
			m.releaseInstance()
			m.state = stateSelectModule
			m.err = nil
		}

	case " ":
		if m.state == stateRunning {
			m.paused = !m.paused
			if !m.paused {
				return m, tickCmd(m.cfg.DefaultDt)
			}
		}

	case "r":
		if m.state == stateRunning && m.inst != nil {
			if err := m.inst.Reset(m.ctx); err != nil {
				m.err = err
			} else {
				m.err = nil
				m.history = m.history[:0]
			}
		}

	case "i":
		if m.state == stateRunning {
			m.edit = textinput.New()
			m.edit.Placeholder = "name=value"
			m.edit.Prompt = "set: "
			m.edit.Width = 40
			m.edit.Focus()
			m.editing = true
			return m, textinput.Blink
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if m.state == stateRunning {
			m.toggleBool(int(msg.String()[0] - '1'))
		}
	}
	return m, nil
}

// applyEdit parses a name=value edit and writes it to the instance with the
// declared type, surfacing any binding error in the status line.
func (m *uiModel) applyEdit() {
	name, raw, ok := strings.Cut(m.edit.Value(), "=")
	if !ok {
		m.err = fmt.Errorf("malformed edit %q, want name=value", m.edit.Value())
		return
	}
	val, err := parseValue(m.inst.Descriptor(), name, raw)
	if err != nil {
		m.err = err
		return
	}
	if err := m.inst.SetByName(m.ctx, name, val); err != nil {
		m.err = err
		return
	}
	m.err = nil
}

func (m *uiModel) startInstance(name string) error {
	desc, err := m.reg.Load(m.ctx, name)
	if err != nil {
		return err
	}
	inst, err := m.reg.Instantiate(m.ctx, desc)
	if err != nil {
		return err
	}
	m.inst = inst
	m.paused = false
	m.history = m.history[:0]
	m.err = nil

	m.boolInputs = m.boolInputs[:0]
	m.boolState = m.boolState[:0]
	for _, v := range desc.Variables() {
		if v.Type == simruntime.Boolean && v.Direction == simruntime.Input {
			slot, err := desc.Resolve(v.Name, simruntime.Boolean)
			if err == nil {
				m.boolInputs = append(m.boolInputs, slot)
				m.boolState = append(m.boolState, v.HasStart && v.Start.Bool)
			}
		}
	}
	m.plotSlot, m.havePlot, err = pickPlotVar(desc, "")
	return err
}

func (m *uiModel) releaseInstance() {
	if m.inst != nil {
		m.reg.Release(m.ctx, m.inst)
		m.inst = nil
	}
}

// advance steps once and appends the plotted output to the history.
// Contained failures show up in the status line instead of aborting the UI.
func (m *uiModel) advance() {
	if m.inst == nil || m.inst.Status() == simruntime.Failed {
		return
	}
	if err := m.stepper.Step(m.ctx, m.inst, m.cfg.DefaultDt); err != nil {
		m.err = err
		if m.inst.Status() == simruntime.Failed {
			return
		}
	} else {
		m.err = nil
	}
	if !m.havePlot {
		return
	}
	if v, err := m.inst.Get(m.ctx, m.plotSlot); err == nil {
		m.history = append(m.history, v.Real)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	}
}

// toggleBool flips the i-th boolean input. Inputs are write-only, so the
// current value is tracked here rather than read back.
func (m *uiModel) toggleBool(i int) {
	if m.inst == nil || i < 0 || i >= len(m.boolInputs) {
		return
	}
	m.boolState[i] = !m.boolState[i]
	_ = m.inst.Set(m.ctx, m.boolInputs[i], simruntime.BoolValue(m.boolState[i]))
}

func (m *uiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("simrun"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectModule:
		if len(m.modules) == 0 {
			b.WriteString(fmt.Sprintf("no modules found in %v\n", m.cfg.SearchPaths))
			b.WriteString(helpStyle.Render("\nrun `simrun gen` to create the samples • q quit"))
			return b.String()
		}
		b.WriteString("Select a module:\n\n")
		for i, name := range m.modules {
			line := "  " + name
			if i == m.selected {
				line = selectedStyle.Render("> " + name)
			}
			b.WriteString(line + "\n")
		}
		if m.err != nil {
			b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateRunning:
		m.viewRunning(&b)
	}
	return b.String()
}

func (m *uiModel) viewRunning(b *strings.Builder) {
	status := m.inst.Status()
	b.WriteString(fmt.Sprintf("%s  %s  t=%.2fs steps=%d\n\n",
		labelStyle.Render(m.inst.Descriptor().Name()),
		statusStyles[status].Render(status.String()),
		m.inst.SimulatedTime(), m.inst.StepCount()))

	if len(m.history) > 1 {
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Caption(m.plotSlot.Name)))
		b.WriteString("\n\n")
	}

	if status != simruntime.Failed {
		if outs, err := m.inst.Outputs(m.ctx); err == nil {
			for _, o := range outs {
				b.WriteString(fmt.Sprintf("  %s %s\n",
					labelStyle.Render(o.Name), valueStyle.Render(o.Value.String())))
			}
		}
	}
	for i, slot := range m.boolInputs {
		b.WriteString(fmt.Sprintf("  [%d] %s = %v\n", i+1, slot.Name, m.boolState[i]))
	}
	if m.editing {
		b.WriteString("\n" + m.edit.View() + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	help := "i set variable • space pause • r reset • esc back • q quit"
	if len(m.boolInputs) > 0 {
		help = "1-9 toggle input • " + help
	}
	b.WriteString("\n" + helpStyle.Render(help))
}

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "interactive terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg, err := simrt.NewRegistry(ctx, registryOptions(cfg, nil))
			if err != nil {
				return err
			}
			defer reg.Close(ctx)

			p := tea.NewProgram(newUIModel(ctx, cfg, reg), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
