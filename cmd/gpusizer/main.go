package main

import "github.com/tutu-network/gpusizer/internal/cli"

func main() {
	cli.Execute()
}
