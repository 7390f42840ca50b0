// Package main is the entry point of the grimoire CLI.
package main

import (
	"github.com/huangsam/grimoire/cmd"
	"github.com/huangsam/grimoire/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("grimoire failed", err)
	}
}
