package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive dispatch console",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd.Context())
	},
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func runRepl(ctx context.Context) error {
	sig := NewSignalHandler(ctx)
	sig.Start()

	d, err := buildDispatcher(sig.ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println(promptStyle.Render("Nimbus interactive dispatch console. Type /exit to quit."))
	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-sig.ctx.Done():
			sig.Wait()
			return nil
		default:
		}

		fmt.Print(promptStyle.Render("> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/exit":
			return nil
		}

		result, procErr := d.Process(sig.ctx, line)
		if procErr != nil {
			fmt.Println(errorStyle.Render(procErr.Error()))
			continue
		}
		if result == nil {
			continue
		}
		printResult(result)
	}
}

func readStdinLines(out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func printResult(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(resultStyle.Render(string(b)))
}
