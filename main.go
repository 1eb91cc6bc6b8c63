package main

import (
	"github.com/luma/heosbridge/cmd"
)

func main() {
	cmd.Execute()
}
