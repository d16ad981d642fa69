package main

import "portresolve/internal/cli"

func main() {
	cli.Execute()
}
