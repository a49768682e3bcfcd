package main

import "insulin-calc/internal/cli"

func main() {
	cli.Execute()
}
