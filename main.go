package main

import (
	"os"

	"github.com/coget/coget/cmd"
	"github.com/coget/coget/pkg/cli"
	"github.com/coget/coget/pkg/logging"
)

func main() {
	logging.SetupLogger()
	rootCMD := cmd.GetRootCommand()

	if err := rootCMD.Execute(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}
