package main

import "github.com/park285/IgKnight-client/cmd/igknight/cmd"

func main() {
	cmd.Execute()
}
