package main

import (
	"github.com/yegorian/legendary-empire/internal/cli"
)

func main() {
	cli.Execute()
}
