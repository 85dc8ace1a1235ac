package main

import "ChessSync/internal/cli"

func main() {
	cli.Execute()
}
