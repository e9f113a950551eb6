// Command linkgraph manages classes, objects and the mirrored links
// between them.
package main

import (
	"os"

	"github.com/mesh-intelligence/linkgraph/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
