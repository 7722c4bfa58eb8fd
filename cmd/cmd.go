package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coget/coget/cmd/root"
	"github.com/coget/coget/cmd/version"
)

func GetRootCommand() *cobra.Command {
	rootCMD := root.GetCommand()
	rootCMD.AddCommand(version.VersionCMD)
	return rootCMD
}
