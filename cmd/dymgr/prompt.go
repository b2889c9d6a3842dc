package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNoPassword = errors.New("password required: pass --password, --password-stdin, or run from a terminal")

// readPassword resolves a password from the flag, from stdin, or from an
// interactive prompt with echo disabled, in that order.
func readPassword(cmd *cobra.Command, flagValue string, fromStdin bool, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	in := cmd.InOrStdin()
	if fromStdin {
		return readLine(in)
	}
	file, ok := in.(*os.File)
	if !ok || !isTerminal(file) {
		return "", errNoPassword
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	data, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(data) == 0 {
		return "", errNoPassword
	}
	return string(data), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errNoPassword
	}
	return line, nil
}
