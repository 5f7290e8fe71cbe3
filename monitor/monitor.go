package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/newhook/bbc/bbc/bbc"
	"github.com/newhook/bbc/dis/disassembler"
)

// cpuState is a snapshot for change highlighting between refreshes.
type cpuState struct {
	A  uint8
	X  uint8
	Y  uint8
	PC uint16
	SP uint8
	P  uint8
}

type stepTick struct{}

func doStep() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return stepTick{}
	})
}

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	changed   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}

	titleStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Padding(0, 1)

	regsStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(1).
			Width(30)

	changedStyle = lipgloss.NewStyle().
			Foreground(changed).
			Bold(true)

	viaStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(special).
			Padding(1).
			Width(34)

	disasmStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(1)

	currentLineStyle = lipgloss.NewStyle().
				Background(highlight).
				Foreground(lipgloss.Color("#ffffff"))

	memoryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(special).
			Padding(1).
			Width(50)
)

// Monitor is the bubbletea model inspecting a live machine. The machine is
// stepped from the Update loop, so the monitor owns emulation time while it
// is attached.
type Monitor struct {
	machine *bbc.Machine
	paused  bool

	lastState cpuState

	memoryAddress uint16
	gotoInput     textinput.Model
	showingGoto   bool
}

func New(machine *bbc.Machine) *Monitor {
	ti := textinput.New()
	ti.Placeholder = "Enter hex address (e.g. FF00)"
	ti.CharLimit = 4
	ti.Width = 6

	return &Monitor{
		machine:   machine,
		paused:    true,
		gotoInput: ti,
	}
}

func (m *Monitor) Init() tea.Cmd {
	return doStep()
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showingGoto {
			switch msg.String() {
			case "enter":
				if addr, err := strconv.ParseUint(m.gotoInput.Value(), 16, 16); err == nil {
					m.memoryAddress = uint16(addr)
				}
				m.showingGoto = false
				m.gotoInput.Reset()
				return m, nil
			case "esc":
				m.showingGoto = false
				m.gotoInput.Reset()
				return m, nil
			}
			var cmd tea.Cmd
			m.gotoInput, cmd = m.gotoInput.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.machine.Exit(0)
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "s":
			m.step(1)
		case "g":
			m.showingGoto = true
			m.gotoInput.Focus()
		}
	case stepTick:
		if !m.paused {
			m.step(2000)
		}
		return m, doStep()
	}
	return m, nil
}

// step runs n instructions through the interpreter, advancing the wheel so
// the VIAs keep pace.
func (m *Monitor) step(n int) {
	m.lastState = m.snapshot()
	for i := 0; i < n; i++ {
		m.machine.Wheel.Advance(int64(m.machine.CPU.Step()))
	}
}

func (m *Monitor) snapshot() cpuState {
	c := m.machine.CPU
	return cpuState{A: c.A, X: c.X, Y: c.Y, PC: c.PC, SP: c.SP, P: c.P}
}

func (m *Monitor) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BBC Micro monitor — space run/pause, s step, g goto, q quit"))
	b.WriteString("\n")

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		regsStyle.Render(m.renderRegisters()),
		viaStyle.Render(m.renderVIA()),
	)
	b.WriteString(row)
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		disasmStyle.Render(m.renderDisassembly()),
		memoryStyle.Render(m.renderMemory()),
	))
	if m.showingGoto {
		b.WriteString("\n")
		b.WriteString(m.gotoInput.View())
	}
	return b.String()
}

func (m *Monitor) renderRegisters() string {
	c := m.machine.CPU
	var b strings.Builder
	b.WriteString("CPU\n")
	reg := func(name string, now, before any) {
		line := fmt.Sprintf("%-3s %v", name, now)
		if fmt.Sprint(now) != fmt.Sprint(before) {
			line = changedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	reg("A", fmt.Sprintf("%02X", c.A), fmt.Sprintf("%02X", m.lastState.A))
	reg("X", fmt.Sprintf("%02X", c.X), fmt.Sprintf("%02X", m.lastState.X))
	reg("Y", fmt.Sprintf("%02X", c.Y), fmt.Sprintf("%02X", m.lastState.Y))
	reg("SP", fmt.Sprintf("%02X", c.SP), fmt.Sprintf("%02X", m.lastState.SP))
	reg("PC", fmt.Sprintf("%04X", c.PC), fmt.Sprintf("%04X", m.lastState.PC))
	b.WriteString(fmt.Sprintf("P   %s\n", flagString(c.P)))
	b.WriteString(fmt.Sprintf("IRQ %v\n", c.IRQLine()))
	b.WriteString(fmt.Sprintf("T   %d", m.machine.Wheel.Now()))
	return b.String()
}

func flagString(p uint8) string {
	names := "NV-BDIZC"
	var b strings.Builder
	for i := 7; i >= 0; i-- {
		if p&(1<<i) != 0 {
			b.WriteByte(names[7-i])
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (m *Monitor) renderVIA() string {
	var b strings.Builder
	render := func(name string, v interface {
		IFRValue() uint8
		IERValue() uint8
		ReadRegister(uint8) uint8
	}) {
		b.WriteString(name + "\n")
		b.WriteString(fmt.Sprintf("IFR %02X  IER %02X\n", v.IFRValue(), v.IERValue()))
	}
	render("System VIA", m.machine.SysVIA)
	render("User VIA", m.machine.UserVIA)
	b.WriteString(fmt.Sprintf("IC32 %02X  PB7 %d", m.machine.SysVIA.Latch(), m.machine.SysVIA.PB7()))
	return b.String()
}

func (m *Monitor) renderDisassembly() string {
	ram := m.machine.Mem.RAM()
	pc := m.machine.CPU.PC
	var b strings.Builder
	b.WriteString("Disassembly\n")
	for line := 0; line < 12; line++ {
		text, size := disassembler.Disassemble(ram, pc)
		if line == 0 {
			text = currentLineStyle.Render(text)
		}
		b.WriteString(text + "\n")
		pc += uint16(size)
	}
	return b.String()
}

func (m *Monitor) renderMemory() string {
	ram := m.machine.Mem.RAM()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Memory at %04X\n", m.memoryAddress))
	for row := 0; row < 8; row++ {
		addr := m.memoryAddress + uint16(row*8)
		b.WriteString(fmt.Sprintf("%04X:", addr))
		for col := 0; col < 8; col++ {
			b.WriteString(fmt.Sprintf(" %02X", ram[addr+uint16(col)]))
		}
		b.WriteString("\n")
	}
	return b.String()
}
