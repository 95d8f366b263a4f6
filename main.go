package main

import (
	"fmt"
	"os"

	"github.com/Wimboro/gmail-wa/cmd/root"
	"github.com/Wimboro/gmail-wa/cmd/run"
	"github.com/Wimboro/gmail-wa/cmd/watch"
)

func init() {
	root.Init()
	root.Cmd.AddCommand(run.Cmd)
	root.Cmd.AddCommand(watch.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
