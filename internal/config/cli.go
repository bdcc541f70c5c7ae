// Package config defines the top-level command line.
package config

import (
	"github.com/Alia5/steamtarget/internal/cmd"
	"github.com/Alia5/steamtarget/internal/log"
)

type CLI struct {
	Config string     `help:"Path to a JSON, YAML or TOML config file" env:"STEAMTARGET_CONFIG"`
	Log    log.Config `embed:"" prefix:"log."`

	Run        cmd.Run           `cmd:"" help:"Virtualize controllers and arbitrate overlay focus"`
	Scan       cmd.Scan          `cmd:"" help:"Print the detected physical controllers and XInput slots"`
	ConfigCmds cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
