package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/KevoDB/blkview/pkg/chain"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".tip"),
	readline.PcItem(".stats"),
	readline.PcItem(".exit"),
	readline.PcItem("BLOCK"),
	readline.PcItem("JSON"),
	readline.PcItem("RANGE"),
)

const shellHelpText = `
Commands:
  .help                   - Show this help message
  .tip                    - Show the highest height decoded so far
  .stats                  - Show index statistics
  .exit                   - Exit the shell

  BLOCK height            - Print the block at height
  JSON height             - Print the block at height as JSON
  RANGE from [to]         - Print one line per block from from to to (default: end of chain)
`

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell FILE",
		Short: "Browse a block file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.openIndex(args[0])
			if err != nil {
				return err
			}
			defer idx.Close()

			return runShell(cmd.OutOrStdout(), idx, args[0])
		},
	}
}

func runShell(out io.Writer, idx *chain.Index, path string) error {
	fmt.Fprintf(out, "blkview %s - %s (chain starts at offset %d)\n", version, path, idx.ChainStart())
	fmt.Fprintln(out, "Enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".blkview_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("blkview:%s> ", filepath.Base(path)),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if readErr == io.EOF {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", readErr)
		}

		if quit := executeLine(out, idx, line); quit {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
	}
}

// executeLine runs one shell command and reports whether the shell should exit
func executeLine(out io.Writer, idx *chain.Index, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToUpper(parts[0])

	if strings.HasPrefix(cmd, ".") {
		switch strings.ToLower(cmd) {
		case ".help":
			fmt.Fprint(out, shellHelpText)
		case ".exit":
			return true
		case ".tip":
			if tip, ok := idx.Tip(); ok {
				fmt.Fprintf(out, "Tip: %d (%d heights indexed)\n", tip, idx.Len())
			} else {
				fmt.Fprintln(out, "No blocks decoded yet")
			}
		case ".stats":
			printStats(out, idx.Stats())
		default:
			fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
		}
		return false
	}

	switch cmd {
	case "BLOCK", "JSON":
		if len(parts) != 2 {
			fmt.Fprintf(out, "Error: %s expects a height\n", cmd)
			return false
		}
		height, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "Error: invalid height %q\n", parts[1])
			return false
		}
		if err := showBlock(out, idx, height, cmd == "JSON"); err != nil {
			fmt.Fprintf(out, "Error: %s\n", err)
		}

	case "RANGE":
		if len(parts) < 2 || len(parts) > 3 {
			fmt.Fprintln(out, "Error: RANGE expects a start and an optional end height")
			return false
		}
		from, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			fmt.Fprintf(out, "Error: invalid height %q\n", parts[1])
			return false
		}
		to := chain.RangeToEnd
		if len(parts) == 3 {
			if to, err = strconv.ParseUint(parts[2], 10, 64); err != nil {
				fmt.Fprintf(out, "Error: invalid height %q\n", parts[2])
				return false
			}
		}
		if err := scanBlocks(out, idx, from, to, false); err != nil {
			fmt.Fprintf(out, "Error: %s\n", err)
		}

	default:
		fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
	}
	return false
}

func printStats(out io.Writer, stats map[string]interface{}) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, "Index Statistics:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %v\n", k, stats[k])
	}
}
