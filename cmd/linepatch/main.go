package main

import "linepatch/internal/cli"

func main() {
	cli.Execute()
}
