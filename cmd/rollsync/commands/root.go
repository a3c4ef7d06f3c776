package commands

import (
	"github.com/mosaicnetworks/rollsync/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for rollsync
var RootCmd = &cobra.Command{
	Use:              "rollsync",
	Short:            "rollup block synchronization",
	TraverseChildren: true,
}
