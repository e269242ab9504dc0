// Package cli implements the interactive species lookup used by the query
// command.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stwalsh4118/streettrees/internal/models"
	"github.com/stwalsh4118/streettrees/internal/services"
)

const (
	// Prompt is printed before each query when the session is interactive.
	Prompt = `Enter the tree species to learn more about it ("quit" to stop):`
	// QuitCommand ends the session, matched case-insensitively.
	QuitCommand = "quit"
	// QuitMessage is printed when the user quits.
	QuitMessage = "Program has quit"

	labelTabWidth = 8
)

// REPL reads species queries line by line and prints their statistics.
type REPL struct {
	svc    services.StatsService
	in     io.Reader
	out    io.Writer
	prompt bool
}

// NewREPL creates a REPL. When prompt is false, as when input is piped, the
// prompt line is not printed.
func NewREPL(svc services.StatsService, in io.Reader, out io.Writer, prompt bool) *REPL {
	return &REPL{svc: svc, in: in, out: out, prompt: prompt}
}

// Run answers queries until the user quits, input ends or ctx is cancelled.
// Quitting and end of input both return nil.
//
// Blank lines are skipped and print nothing. An empty query would otherwise
// match every species and print citywide statistics for the whole catalog;
// use the species names endpoint for a full listing.
func (r *REPL) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines, readErr := r.readLines(done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.prompt {
			fmt.Fprintln(r.out, Prompt)
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-readErr
			}
			line = l
		}

		input := strings.TrimSpace(line)
		if models.EqualFold(input, QuitCommand) {
			fmt.Fprintln(r.out, QuitMessage)
			return nil
		}

		stats, err := r.svc.SpeciesStats(ctx, input)
		if errors.Is(err, services.ErrEmptyQuery) {
			continue
		}
		if err != nil {
			return fmt.Errorf("species query %q: %w", input, err)
		}
		WriteStats(r.out, stats)
	}
}

// readLines scans input on its own goroutine so Run can stop on cancellation
// while a read is blocked. The error channel yields the scan result once
// lines is closed.
func (r *REPL) readLines(done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}

// WriteStats prints the answer to one query: a not-found line when nothing
// matched, otherwise the matching names and the popularity table.
func WriteStats(w io.Writer, stats *services.SpeciesStats) {
	if !stats.HasMatches() {
		fmt.Fprintf(w, "There are no records of %s on NYC streets\n", stats.Query)
		return
	}

	fmt.Fprintln(w, "All matching species:")
	for _, name := range stats.Matches {
		fmt.Fprintf(w, "\t%s\n", name)
	}

	fmt.Fprintln(w, "Popularity in the city:")
	for _, row := range stats.Popularity {
		fmt.Fprintf(w, "\t%s:\t%d(%d)\t%.2f%%\n", padLabel(row.Area), row.Count, row.Total, row.Percent)
	}
	fmt.Fprintln(w)
}

// padLabel aligns area names on tab stops: short names take two tabs so the
// colon column lines up with the long ones.
func padLabel(area string) string {
	if len(area) < labelTabWidth {
		return area + "\t\t"
	}
	return area + "\t"
}
