package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/dictx/internal/codec"
)

// promptDecider asks on out for each recoverable import error and reads the
// answer from in. End of input aborts.
func promptDecider(in io.Reader, out io.Writer) codec.DecideFunc {
	scanner := bufio.NewScanner(in)
	return func(category codec.Category, message string) codec.Decision {
		for {
			fmt.Fprintf(out, "%s: %s\n[a]bort, [i]gnore, ignore [A]ll %ss? ", category, message, category)
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return codec.Abort
			}
			switch strings.TrimSpace(scanner.Text()) {
			case "a", "abort":
				return codec.Abort
			case "i", "ignore":
				return codec.Ignore
			case "A", "all", "ignore-all":
				return codec.IgnoreAll
			}
		}
	}
}
