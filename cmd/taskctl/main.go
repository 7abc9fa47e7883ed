package main

import "github.com/yukikurage/taskmaster/internal/cli"

func main() {
	cli.Execute()
}
