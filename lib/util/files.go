package util

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// returns true if the path exists and is a directory,
// false if it does not exist or is a file
func IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// returns true if anything exists at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// prompts user for input on the console, hiding input
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	d, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(d), err
}
