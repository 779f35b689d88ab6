// Package selector asks the user to pick one of several candidates through
// an external fuzzy finder such as fzf.
package selector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/albertocavalcante/cmk/cmd/cmk/internal/runner"
	"github.com/albertocavalcante/cmk/internal/log"
	"github.com/albertocavalcante/cmk/pkg/cmkerr"
)

// maxVisible is the number of candidate rows shown before scrolling.
const maxVisible = 10

// Selector runs the configured fuzzy finder.
type Selector struct {
	// Program is the finder executable; Args are passed before cmk's own.
	Program string
	Args    []string

	Spawner runner.Spawner
	// LookPath reports whether Program can be started. Nil skips the check.
	LookPath func(file string) (string, error)
	// Env is the environment the finder runs with.
	Env []string
	// Stderr is where the finder draws its interface.
	Stderr io.Writer
	// Rows is the terminal height. Zero means unknown.
	Rows int
}

// TerminalRows returns the height of the terminal on f, or 0.
func TerminalRows(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	_, rows, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return rows
}

// Height returns the --height passed to the finder for n candidates:
// min(n, 10) rows plus the prompt and info lines, capped by rows.
func Height(n, rows int) int {
	h := min(n, maxVisible) + 2
	if rows > 0 && h > rows {
		h = rows
	}
	return h
}

// Choose returns one of candidates. A query equal to a candidate and a
// lone candidate without a query are returned without prompting.
// Otherwise the finder is started once with the candidates on stdin.
func (s *Selector) Choose(ctx context.Context, candidates []string, query string) (string, error) {
	if len(candidates) == 0 {
		return "", cmkerr.New(cmkerr.SelectionAborted, query, "nothing to choose from")
	}
	for _, c := range candidates {
		if query != "" && c == query {
			return c, nil
		}
	}
	if len(candidates) == 1 && query == "" {
		return candidates[0], nil
	}

	if s.LookPath != nil {
		if _, err := s.LookPath(s.Program); err != nil {
			return "", cmkerr.New(cmkerr.SelectorUnavailable, s.Program, "install it or pass the choice explicitly")
		}
	}

	argv := append([]string{s.Program}, s.Args...)
	argv = append(argv, "--height", strconv.Itoa(Height(len(candidates), s.Rows)))
	if query != "" {
		argv = append(argv, "--query", query)
	}

	var out bytes.Buffer
	log.Component("selector").Debug("prompting", "candidates", len(candidates), "query", query)
	code, err := s.Spawner.Spawn(ctx, runner.Command{
		Argv:   argv,
		Env:    s.Env,
		Stdin:  strings.NewReader(strings.Join(candidates, "\n") + "\n"),
		Stdout: &out,
		Stderr: s.Stderr,
	})
	if err != nil {
		if errors.Is(err, cmkerr.SubprocessLaunchFailed) {
			return "", cmkerr.Wrap(cmkerr.SelectorUnavailable, s.Program, err)
		}
		return "", err
	}

	choice := strings.TrimSpace(firstLine(out.String()))
	switch {
	case code == 1 || code == 130 || (code == 0 && choice == ""):
		return "", cmkerr.New(cmkerr.SelectionAborted, query, "no selection made")
	case code != 0:
		return "", cmkerr.Newf(cmkerr.SelectionAborted, query, "%s exited with status %d", s.Program, code)
	}
	return choice, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// Narrow returns the candidates containing query, or all of them when
// query is empty.
func Narrow(candidates []string, query string) []string {
	if query == "" {
		return candidates
	}
	var out []string
	for _, c := range candidates {
		if strings.Contains(c, query) {
			out = append(out, c)
		}
	}
	return out
}
