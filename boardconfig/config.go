// Package boardconfig parses the textual board configuration format
// described in spec.md §6: a first non-blank line "{rows}x{columns}",
// followed by exactly rows*columns non-blank card value lines. Blank
// lines are skipped globally. This is the concrete collaborator the core
// engine spec describes only by contract.
package boardconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"memscramble-server/board"
)

// FormatError reports a deviation from the board configuration format.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("board config: %s", e.Reason)
}

// Parse reads every non-blank line from r, interprets the first as
// "{rows}x{columns}", and the rest as the rows*columns card values in
// row-major order.
func Parse(r io.Reader) (rows, cols int, values []string, err error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("board config: reading: %w", err)
	}
	if len(lines) == 0 {
		return 0, 0, nil, &FormatError{Reason: "configuration is empty"}
	}

	rows, cols, err = parseSize(lines[0])
	if err != nil {
		return 0, 0, nil, err
	}

	cardLines := lines[1:]
	expected := rows * cols
	if len(cardLines) != expected {
		return 0, 0, nil, &FormatError{
			Reason: fmt.Sprintf("expected %d card values, found %d", expected, len(cardLines)),
		}
	}

	return rows, cols, cardLines, nil
}

func parseSize(line string) (rows, cols int, err error) {
	parts := strings.SplitN(line, "x", 2)
	if len(parts) != 2 {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("invalid size line %q, expected \"RxC\"", line)}
	}
	rows, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("non-integer row count in %q", line)}
	}
	cols, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("non-integer column count in %q", line)}
	}
	if rows <= 0 || cols <= 0 {
		return 0, 0, &FormatError{Reason: fmt.Sprintf("rows and columns must be positive, got %dx%d", rows, cols)}
	}
	return rows, cols, nil
}

// Load opens path, parses it, and builds a board.Board from the result in
// one call.
func Load(path string) (*board.Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("board config: opening %s: %w", path, err)
	}
	defer f.Close()

	rows, cols, values, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return board.New(rows, cols, values)
}
