// texdown converts Markdown files to PDF with pandoc and can watch them for
// changes.
package main

import (
	"os"

	"github.com/hupe1980/texdown/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
