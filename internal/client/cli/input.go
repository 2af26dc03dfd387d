package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetSecret reads a secret without echo when in is a terminal and falls back
// to a plain line read otherwise, so tokens can be piped in.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetSecret(in io.Reader, prompt string, w io.Writer) ([]byte, error) {
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		if _, err := fmt.Fprint(w, prompt+": "); err != nil {
			return nil, err
		}
		secret, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		return secret, nil
	}

	line, err := GetSimpleText(bufio.NewReader(in), prompt, w)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}
