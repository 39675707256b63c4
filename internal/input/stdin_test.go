package input

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Input_LineReader_SplitsOnNewline(t *testing.T) {
	lr := NewLineReader(strings.NewReader("first\nsecond\n"))

	line, eof := lr.ReadLine()
	require.Equal(t, "first", line)
	require.False(t, eof)

	line, eof = lr.ReadLine()
	require.Equal(t, "second", line)
	require.False(t, eof)
}

func TestClient_Input_LineReader_StripsCRLF(t *testing.T) {
	lr := NewLineReader(strings.NewReader("hello\r\n"))
	line, _ := lr.ReadLine()
	require.Equal(t, "hello", line)
}

func TestClient_Input_LineReader_FinalPartialLineReportsEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader("no newline at end"))
	line, eof := lr.ReadLine()
	require.Equal(t, "no newline at end", line)
	require.True(t, eof)
}

func TestClient_Input_LineReader_EmptyInputReportsEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader(""))
	line, eof := lr.ReadLine()
	require.Empty(t, line)
	require.True(t, eof)
}
