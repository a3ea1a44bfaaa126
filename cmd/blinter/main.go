// Command blinter lints Windows batch scripts for portability, security,
// and style issues (spec.md §6).
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}
