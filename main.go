package main

import (
	"github.com/luma/paddock/cmd"
)

func main() {
	cmd.Execute()
}
