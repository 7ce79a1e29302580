package main

import (
	"github.com/getdroned/drone/cmd/drone-sim/commands"
)

func main() {
	commands.Execute()
}
