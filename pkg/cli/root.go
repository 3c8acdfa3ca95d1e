package cli

import (
	internalcli "github.com/SmitUplenchwar2687/admit/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the public admit root command for embedding.
func NewRootCmd() *cobra.Command {
	return internalcli.NewRootCmd()
}
