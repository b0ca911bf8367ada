package main

import (
	"log/slog"
	"os"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/tinyutterances/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}
