// Command gatewayctl is the administrative client for a running
// trino-gateway instance: list/edit backends and reload routing rules over
// the gateway's admin API.
package main

import (
	"os"

	"github.com/simpligility/trino-gateway/internal/adminclient"
)

func main() {
	os.Exit(adminclient.NewCLI().Execute())
}
