package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrNotANumber = errors.New("selection is not a number")
	ErrNoOptions  = errors.New("no options to select from")
)

// RangeError reports an index outside the listed options
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("option %d out of range [0,%d)", e.Index, e.Count)
}

// Parse turns one line of user input into an index into count options.
// A blank line selects the first option.
func Parse(line string, count int) (int, error) {
	if count <= 0 {
		return 0, ErrNoOptions
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}

	idx, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, line)
	}

	return Validate(idx, count)
}

// Validate checks that idx addresses one of count options
func Validate(idx, count int) (int, error) {
	if count <= 0 {
		return 0, ErrNoOptions
	}
	if idx < 0 || idx >= count {
		return 0, &RangeError{Index: idx, Count: count}
	}
	return idx, nil
}

// Prompt writes the question to w, reads one line from r and parses it.
// End of input without a newline is treated like an empty line.
func Prompt(r io.Reader, w io.Writer, count int) (int, error) {
	if count <= 0 {
		return 0, ErrNoOptions
	}

	choices := make([]string, count)
	for i := range choices {
		choices[i] = strconv.Itoa(i)
	}
	fmt.Fprintf(w, "Enter [%s] to deploy on to corresponding instance (default: 0): ", strings.Join(choices, ","))

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read selection: %w", err)
	}

	return Parse(line, count)
}
