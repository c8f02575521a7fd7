package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// PrintError prints an error message to stderr
func PrintError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintJSON writes v to w as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHeader prints a section header
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

// printField prints an aligned "label: value" line
func printField(w io.Writer, label string, format string, args ...interface{}) {
	fmt.Fprintf(w, "%-16s"+format+"\n", append([]interface{}{label + ":"}, args...)...)
}
