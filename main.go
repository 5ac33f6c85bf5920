// main.go - Entry point for the TM virtual machine

/*
TM: a fantasy 32-bit virtual machine and assembler.
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	monitorMode := flag.Bool("monitor", false, "Drop into an interactive stepping monitor instead of free-running")
	verbose := flag.Bool("v", false, "Print a register dump after every step")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tm [options] rom.bin\n\nLoads and runs a TM ROM image.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tm: %v\n", err)
		os.Exit(1)
	}

	program, err := LoadProgram(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tm: %v\n", err)
		os.Exit(1)
	}

	bus := NewSystemBus(program.ROM)
	cpu := NewCPU(bus)

	fmt.Printf("tm: loaded %q by %q (%d ROM bytes)\n", program.Name, program.Author, len(program.ROM))

	if *monitorMode {
		mon := NewMonitor(cpu)
		if err := mon.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "tm: %v\n", err)
			os.Exit(1)
		}
		return
	}

	for !cpu.GetFlags().Stop() {
		if err := cpu.Step(); err != nil {
			fmt.Fprintf(os.Stderr, "tm: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("PC=$%08X A=$%08X B=$%08X C=$%08X D=$%08X\n",
				cpu.PC(), cpu.ReadRegister(RegisterA), cpu.ReadRegister(RegisterB),
				cpu.ReadRegister(RegisterC), cpu.ReadRegister(RegisterD))
		}
	}

	if cpu.EC() != ErrorOK {
		fmt.Fprintf(os.Stderr, "tm: halted with error: %v\n", cpu.Err())
		os.Exit(1)
	}
}
