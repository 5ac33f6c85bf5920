// monitor.go - Interactive stepping/inspection monitor for the TM CPU

/*
TM: a fantasy 32-bit virtual machine and assembler.
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.design/x/clipboard"
	"golang.org/x/term"
)

// Monitor is an interactive stepping/inspection REPL over a CPU. It puts
// the controlling terminal into raw mode so single keystrokes drive it
// without waiting for Enter, mirroring the host adapters the rest of the
// repo uses to bridge raw stdin into an emulated device.
type Monitor struct {
	cpu  *CPU
	fd   int
	old  *term.State
	sigs chan os.Signal

	clipboardOK bool
	once        sync.Once
}

// NewMonitor returns a Monitor bound to cpu. Clipboard support is probed
// once and silently disabled if no display server is available.
func NewMonitor(cpu *CPU) *Monitor {
	m := &Monitor{cpu: cpu}
	if err := clipboard.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: clipboard unavailable: %v\n", err)
	} else {
		m.clipboardOK = true
	}
	return m
}

// Run puts stdin into raw mode and drives the monitor's read loop until the
// user quits or stdin closes. It always restores the terminal before
// returning.
func (m *Monitor) Run() error {
	m.fd = int(os.Stdin.Fd())

	old, err := term.MakeRaw(m.fd)
	if err != nil {
		return fmt.Errorf("monitor: failed to set raw mode: %w", err)
	}
	m.old = old
	defer m.restore()

	m.sigs = make(chan os.Signal, 1)
	signal.Notify(m.sigs, syscall.SIGWINCH)
	defer signal.Stop(m.sigs)
	go m.watchResize()

	reader := bufio.NewReader(os.Stdin)
	m.printBanner()

	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil
		}
		if !m.handleKey(b) {
			return nil
		}
	}
}

func (m *Monitor) restore() {
	m.once.Do(func() {
		if m.old != nil {
			_ = term.Restore(m.fd, m.old)
		}
	})
}

func (m *Monitor) watchResize() {
	for range m.sigs {
		w, h, err := term.GetSize(m.fd)
		if err == nil {
			m.redraw(w, h)
		}
	}
}

func (m *Monitor) redraw(width, height int) {
	fmt.Fprintf(os.Stdout, "\r\n\x1b[2J\x1b[H")
	fmt.Fprintf(os.Stdout, "tm monitor (%dx%d)\r\n", width, height)
	m.printRegisters()
}

func (m *Monitor) printBanner() {
	fmt.Fprint(os.Stdout, "tm monitor: s=step c=continue r=registers y=yank q=quit\r\n")
}

// handleKey dispatches one raw keystroke. It returns false when the monitor
// should exit.
func (m *Monitor) handleKey(b byte) bool {
	switch b {
	case 's':
		m.step()
	case 'c':
		m.continueUntilStop()
	case 'r':
		m.printRegisters()
	case 'y':
		m.yank()
	case 'q', 0x03: // q or Ctrl-C
		return false
	}
	return true
}

func (m *Monitor) step() {
	if err := m.cpu.Step(); err != nil {
		fmt.Fprintf(os.Stdout, "\r\nfault: %v\r\n", err)
		return
	}
	m.printRegisters()
}

// continueUntilStop steps the CPU until it halts, faults, or sets STOP.
// There is no host-side debugger protocol here: this is a local loop over
// the in-process CPU, not a remote stepping interface.
func (m *Monitor) continueUntilStop() {
	for {
		if m.cpu.GetFlags().Stop() {
			break
		}
		if err := m.cpu.Step(); err != nil {
			fmt.Fprintf(os.Stdout, "\r\nfault: %v\r\n", err)
			break
		}
	}
	m.printRegisters()
}

func (m *Monitor) printRegisters() {
	c := m.cpu
	fmt.Fprintf(os.Stdout, "\r\nPC=$%08X SP=$%08X RP=$%08X IA=$%08X EA=$%08X\r\n", c.PC(), c.SP(), c.RP(), c.ia, c.ea)
	fmt.Fprintf(os.Stdout, "A=$%08X B=$%08X C=$%08X D=$%08X\r\n",
		c.ReadRegister(RegisterA), c.ReadRegister(RegisterB), c.ReadRegister(RegisterC), c.ReadRegister(RegisterD))
	snap := c.GetFlags().Snapshot()
	fmt.Fprintf(os.Stdout, "Z=%v N=%v H=%v C=%v O=%v U=%v HLT=%v STP=%v IE=$%04X IF=$%04X EC=%s\r\n",
		snap.Zero, snap.Negative, snap.HalfCarry, snap.Carry, snap.Overflow, snap.Underflow, snap.Halt, snap.Stop,
		c.IE(), c.IF(), c.EC())
}

// yank copies the current register/flag dump to the system clipboard, for
// pasting into a bug report or a second terminal. When clipboard access
// failed to initialize, it only prints a "clipboard unavailable" notice.
func (m *Monitor) yank() {
	if !m.clipboardOK {
		fmt.Fprint(os.Stdout, "\r\nyank: clipboard unavailable\r\n")
		return
	}
	c := m.cpu
	dump := fmt.Sprintf("PC=$%08X SP=$%08X RP=$%08X A=$%08X B=$%08X C=$%08X D=$%08X",
		c.PC(), c.SP(), c.RP(), c.ReadRegister(RegisterA), c.ReadRegister(RegisterB),
		c.ReadRegister(RegisterC), c.ReadRegister(RegisterD))
	clipboard.Write(clipboard.FmtText, []byte(dump))
	fmt.Fprint(os.Stdout, "\r\nyank: copied register dump\r\n")
}
