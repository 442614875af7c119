package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/varmark/rebind/internal/config"
	"github.com/varmark/rebind/pkg/api"
)

const (
	promptMain = "rebind> "
	promptCont = "......> "

	banner = "rebind v%s - sequential variable rewriter\n"
)

// repl runs the interactive session: forms are accumulated until the
// terminating dot, rewritten, and printed back.
func repl(cfg *config.Config, opts api.Options) error {
	fmt.Printf(banner, version)
	fmt.Println("Enter forms ending with '.', :quit to exit.")

	histPath := cfg.HistoryFile()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort).
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := readForm(ln)
		if !ok {
			fmt.Println()
			return nil
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if handleReplCommand(trimmed, &opts) {
				return nil
			}
			continue
		}

		result := api.RewriteWithOptions(code, opts)
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				fmt.Fprint(os.Stderr, e)
			}
			continue
		}
		fmt.Print(result.Code)
		if result.Annotated != "" {
			fmt.Print(result.Annotated)
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// handleReplCommand handles :help, :quit, :annotate, :plain.
func handleReplCommand(cmd string, opts *api.Options) (exit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true
	case ":annotate":
		opts.Annotate = true
		fmt.Println("annotations on")
	case ":plain":
		opts.Annotate = false
		fmt.Println("annotations off")
	case ":help":
		fmt.Println("Commands:")
		fmt.Println("  :annotate   show versioned-name listings with output")
		fmt.Println("  :plain      hide listings")
		fmt.Println("  :quit       exit")
	default:
		fmt.Println("unknown command. Type :help for help.")
	}
	return false
}

// readForm reads lines until the buffer ends with the form terminator.
// Commands starting with ':' complete on one line.
func readForm(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(promptMain)
		} else {
			line, err = ln.Prompt(promptCont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		trimmed := strings.TrimSpace(src)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") {
			return src, true
		}
		if strings.HasSuffix(strings.TrimRight(src, " \t"), ".") {
			return src, true
		}
	}
}
