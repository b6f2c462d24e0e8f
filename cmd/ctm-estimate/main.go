// ctm-estimate answers K̂(s) = -log2 D(n,m)(s) queries against a
// distribution file written by ctm (spec.md §1's "downstream estimator"
// external collaborator; supplemented per SPEC_FULL.md §4).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/niceyeti/ctm/internal/estimator"
)

var (
	distPath *string
	query    *string
)

func init() {
	distPath = flag.String("dist", "", "path to a distribution JSON file written by ctm")
	query = flag.String("s", "", "the output string to estimate K(s) for")
	flag.Parse()
}

func main() {
	if err := runApp(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp() error {
	if *distPath == "" || *query == "" {
		return fmt.Errorf("ctm-estimate: both -dist and -s are required")
	}

	e, err := estimator.Load(*distPath)
	if err != nil {
		return fmt.Errorf("ctm-estimate: %w", err)
	}

	fmt.Printf("n=%d s=%q D(s)=%g K(s)=%g\n", e.N(), *query, e.Probability(*query), e.K(*query))
	return nil
}
