package main

import "newscluster/internal/cli"

func main() {
	cli.Execute()
}
