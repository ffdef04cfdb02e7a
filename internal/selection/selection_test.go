package selection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		count   int
		want    int
		wantErr error
	}{
		{name: "empty defaults to first", line: "", count: 3, want: 0},
		{name: "newline only", line: "\n", count: 3, want: 0},
		{name: "whitespace", line: "  \t", count: 3, want: 0},
		{name: "explicit index", line: "2\n", count: 3, want: 2},
		{name: "padded index", line: " 1 ", count: 3, want: 1},
		{name: "not a number", line: "two", count: 3, wantErr: ErrNotANumber},
		{name: "float", line: "1.0", count: 3, wantErr: ErrNotANumber},
		{name: "no options", line: "", count: 0, wantErr: ErrNoOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line, tt.count)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutOfRange(t *testing.T) {
	for _, line := range []string{"3", "-1", "99"} {
		_, err := Parse(line, 3)
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr, line)
		assert.Equal(t, 3, rangeErr.Count)
	}

	// fewer offers than the usual three
	_, err := Parse("1", 1)
	assert.EqualError(t, err, "option 1 out of range [0,1)")
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer

	idx, err := Prompt(strings.NewReader("1\n"), &out, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Enter [0,1,2] to deploy on to corresponding instance (default: 0): ", out.String())

	out.Reset()
	idx, err = Prompt(strings.NewReader(""), &out, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Contains(t, out.String(), "[0,1]")
}
