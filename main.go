package main

import "github.com/theirongolddev/cbill/cmd"

func main() {
	cmd.Execute()
}
