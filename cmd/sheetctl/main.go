// Command sheetctl previews and pushes spreadsheets from the command line.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}
