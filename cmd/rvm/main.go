// Command rvm assembles and runs a single .rvm source file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"rvm/internal/asm"
	"rvm/internal/vm"
	"rvm/internal/vmconfig"
)

func run(path string, stdout io.Writer) error {
	cfg, err := vmconfig.Load(".")
	if err != nil {
		return err
	}

	image, err := asm.Assemble(path)
	if err != nil {
		return err
	}

	machine, err := vm.New(image.Bytes, image.StartAddress,
		vm.WithMemoryBytes(cfg.Memory.Bytes), vm.WithIOBufferSize(cfg.IO.BufferSize),
		vm.WithStdout(stdout))
	if err != nil {
		return err
	}

	return machine.Run()
}

// fail prints a diagnostic to stdout (spec requires diagnostics on the
// normal print channel, not stderr) and returns an empty-message
// cli.ExitError so urfave/cli exits non-zero without also writing the
// message to its own ErrWriter.
func fail(format string, args ...any) error {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
	return cli.NewExitError("", 1)
}

func main() {
	app := cli.NewApp()
	app.Name = "rvm"
	app.Usage = "assemble and run a register-machine source file"
	app.ArgsUsage = "file.rvm"
	app.Action = func(c *cli.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return fail("expected exactly one source file argument")
		}
		if err := run(args[0], os.Stdout); err != nil {
			return fail("%s", err)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(1)
	}
}
