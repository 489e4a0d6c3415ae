package main

import (
	"github.com/maxgio92/gptimer/pkg/cmd"
)

func main() {
	cmd.Execute()
}
