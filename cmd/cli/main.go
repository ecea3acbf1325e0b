package main

import (
	"github.com/mchmarny/coxrisk/pkg/cli"
)

func main() {
	cli.Execute()
}
