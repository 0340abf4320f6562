package cmd

import (
	"github.com/rohitksw/sw-alert-system/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveGatewayCmd represents the serve gateway command
var serveGatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve realtime alert gateway instance",
	Run:   server.RunServeGateway(c),
}

func init() {
	serveCmd.AddCommand(serveGatewayCmd)
}
