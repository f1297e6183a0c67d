package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"go.kestrel.dev/vmtranslator/internal/driver"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
A single '.vm' file is translated in isolation; a directory is scanned for every '.vm'
file it directly contains and translated as one program, sharing a single bootstrap.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "A '.vm' file, or a directory containing '.vm' files")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || args[0] == "" {
		fmt.Printf("ERROR: Missing required <input> argument, use --help\n")
		return -1
	}

	output, err := driver.New().Translate(args[0])
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	fmt.Printf("Wrote %s\n", output)
	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
