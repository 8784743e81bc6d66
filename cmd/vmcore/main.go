// Command vmcore is the toolchain's driver: compile, run, and single-step
// debug the embedded example programs (§6). lex/parse are named for
// symmetry with a future front end but are not implemented here.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vmcore/internal/builtins"
	"vmcore/internal/compiler"
	"vmcore/internal/diag"
	"vmcore/internal/examples"
	"vmcore/internal/types"
	"vmcore/internal/vm"
)

var (
	exampleName string
	logger      = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vmcore",
		Short:         "compiler and VM for the toolchain's embedded example programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(comCmd(), runCmd(), debugCmd(), lexCmd(), parseCmd())
	return root
}

func exampleFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&exampleName, "example", "", fmt.Sprintf("example program to operate on (one of: %v)", examples.Names()))
}

func comCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "com",
		Short: "compile an example and print its disassembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := types.NewStore()
			registry := builtins.Standard(os.Stdout)
			root, err := examples.Build(exampleName)
			if err != nil {
				return diag.NewCompileError("", err)
			}
			c := compiler.New(store, registry, os.Stdout)
			program, err := c.Compile(root)
			if err != nil {
				return err
			}
			fmt.Print(program.String())
			return nil
		},
	}
	exampleFlag(cmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "compile and execute an example",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := types.NewStore()
			registry := builtins.Standard(os.Stdout)
			root, err := examples.Build(exampleName)
			if err != nil {
				return diag.NewCompileError("", err)
			}
			c := compiler.New(store, registry, os.Stdout)
			program, err := c.Compile(root)
			if err != nil {
				return err
			}
			machine := vm.New(program, registry, vm.WithStdout(os.Stdout), vm.WithLogger(logger))
			return machine.Run()
		},
	}
	exampleFlag(cmd)
	return cmd
}

func debugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "compile and execute an example, tracing every instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := types.NewStore()
			registry := builtins.Standard(os.Stdout)
			root, err := examples.Build(exampleName)
			if err != nil {
				return diag.NewCompileError("", err)
			}
			c := compiler.New(store, registry, os.Stdout)
			program, err := c.Compile(root)
			if err != nil {
				return err
			}
			machine := vm.New(program, registry, vm.WithStdout(os.Stdout), vm.WithLogger(logger))
			return machine.RunDebug()
		},
	}
	exampleFlag(cmd)
	return cmd
}

func lexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lex <path>",
		Short: "tokenize a source file (front end not included in this build)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return diag.Compilef("", "lex: front end not included in this build")
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <path>",
		Short: "parse a source file into a tree (front end not included in this build)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return diag.Compilef("", "parse: front end not included in this build")
		},
	}
}
