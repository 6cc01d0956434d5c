package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RunWithSpinner runs fn while showing a progress spinner with the given
// message. In quiet mode it just runs fn, so scripts and piped output stay
// clean. A failure is flagged on stderr; the error itself is returned for
// cobra to report.
func RunWithSpinner(quiet bool, message string, fn func() error) error {
	if quiet {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()

	err := fn()
	s.Stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", text.FgRed.Sprintf("❌ %s failed", message))
	}
	return err
}
