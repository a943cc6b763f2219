package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const replHelp = `Commands:
  /new         start a new session
  /switch <id> switch to a saved session
  /model       show the model of the selected session
  exit         leave`

// runREPL reads questions from in until exit or EOF and asks each one on the
// selected session. Failed exchanges are printed and the loop continues.
func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case line == "/help":
			fmt.Fprintln(out, replHelp)
		case line == "/new":
			if err := a.controller.Select(a.manager.Count()); err != nil {
				a.printer.Error(err)
			}
		case strings.HasPrefix(line, "/switch"):
			id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/switch")))
			if err != nil {
				a.printer.Error(errors.New("usage: /switch <id>"))
				continue
			}
			if err := a.controller.Select(id); err != nil {
				a.printer.Error(err)
				continue
			}
			a.printer.Transcript(a.controller.Transcript())
		case line == "/model":
			fmt.Fprintln(out, a.controller.SelectedModel())
		default:
			// The reporter prints the reply; the error is already recorded.
			_, _ = a.controller.Ask(ctx, line)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
