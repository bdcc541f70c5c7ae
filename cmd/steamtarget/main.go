package main

import (
	"errors"
	"os"
	"strings"

	"github.com/Alia5/steamtarget/internal/config"
	"github.com/Alia5/steamtarget/internal/configpaths"
	"github.com/Alia5/steamtarget/internal/engine"
	"github.com/Alia5/steamtarget/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {

	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("steamtarget"),
		kong.Description("Virtual Xbox 360 controllers and Steam overlay focus handling"),
		kong.UsageOnError(),
		// Load configuration from JSON/YAML/TOML in priority order; flags/env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, rawLogger, closeLogs, err := log.Setup(cli.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		closeLogs()
		os.Exit(2)
	}

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	err = ctx.Run()
	if errors.Is(err, engine.ErrDriverInit) {
		logger.Error("Virtualization driver unavailable", "error", err)
		closeLogs()
		os.Exit(1)
	}
	closeLogs()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("STEAMTARGET_CONFIG"); v != "" {
		return v
	}
	return ""
}
