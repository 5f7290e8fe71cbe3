package main

import (
	"fmt"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"
	"github.com/newhook/bbc/dis/disassembler"
)

func main() {
	optOrigin := getopt.StringLong("origin", 'g', "0", "Load address (hex)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("file")
	getopt.Parse()

	if *optHelp || len(getopt.Args()) != 1 {
		getopt.Usage()
		os.Exit(1)
	}

	origin, err := strconv.ParseUint(*optOrigin, 16, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad origin %q: %v\n", *optOrigin, err)
		os.Exit(1)
	}

	data, err := os.ReadFile(getopt.Args()[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mem := make([]byte, 0x10000)
	copy(mem[origin:], data)
	fmt.Print(disassembler.DisassembleRange(mem, uint16(origin), len(data)))
}
