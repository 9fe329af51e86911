// draftgate validates AI-generated collection emails before anyone can send
// them. See `draftgate --help` for the command tree.
package main

import "github.com/solvix/draftgate/internal/cli"

func main() {
	cli.Execute()
}
