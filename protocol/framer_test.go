package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains the framer, recording skipped records as "<skip>".
func collect(t *testing.T, f *Framer) []string {
	t.Helper()

	var out []string
	for {
		rec, err := f.Next()
		switch {
		case err == nil:
			out = append(out, string(rec))
		case IsRecordError(err):
			out = append(out, "<skip>")
		case errors.Is(err, io.EOF):
			return out
		default:
			require.NoError(t, err)
		}
	}
}

func TestFramer_Next(t *testing.T) {
	tests := []struct {
		name      string
		input     io.Reader
		maxRecord int
		want      []string
	}{
		{
			name:  "records bunched in one read",
			input: strings.NewReader("DRAW,1,1,2,2,red,1\nCLEAR\nCHAT,hi\n"),
			want:  []string{"DRAW,1,1,2,2,red,1", "CLEAR", "CHAT,hi"},
		},
		{
			name:  "records split across one byte reads",
			input: iotest.OneByteReader(strings.NewReader("JOIN,alice,4821\nDRAW,1,1,2,2,red,1\n")),
			want:  []string{"JOIN,alice,4821", "DRAW,1,1,2,2,red,1"},
		},
		{
			name:  "unterminated trailing bytes are discarded",
			input: strings.NewReader("CLEAR\nDRAW,1,1,2"),
			want:  []string{"CLEAR"},
		},
		{
			name:  "empty lines are records",
			input: strings.NewReader("\nCLEAR\n"),
			want:  []string{"", "CLEAR"},
		},
		{
			name:  "invalid utf-8 record is skipped",
			input: strings.NewReader("CHAT,\xff\xfe\nCLEAR\n"),
			want:  []string{"<skip>", "CLEAR"},
		},
		{
			name:      "oversized record is skipped",
			input:     strings.NewReader("CHAT," + strings.Repeat("x", 100) + "\nCLEAR\n"),
			maxRecord: 32,
			want:      []string{"<skip>", "CLEAR"},
		},
		{
			name:      "record at the size limit is kept",
			input:     strings.NewReader(strings.Repeat("y", 32) + "\n"),
			maxRecord: 32,
			want:      []string{strings.Repeat("y", 32)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(tt.input, tt.maxRecord)
			assert.Equal(t, tt.want, collect(t, f))
		})
	}
}

func TestFramer_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	f := NewFramer(io.MultiReader(strings.NewReader("CLEAR\n"), iotest.ErrReader(boom)), 0)

	rec, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "CLEAR", string(rec))

	_, err = f.Next()
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsRecordError(err))
}

func TestFramer_RecordIsCopied(t *testing.T) {
	f := NewFramer(strings.NewReader("DRAW,1,1,2,2,red,1\nDRAW,3,3,4,4,red,1\n"), 0)

	first, err := f.Next()
	require.NoError(t, err)
	_, err = f.Next()
	require.NoError(t, err)

	assert.Equal(t, "DRAW,1,1,2,2,red,1", string(first))
}
