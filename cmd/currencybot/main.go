package main

import (
	"log"

	"github.com/m3rciful/currencybot/core/bootstrap"
	"github.com/m3rciful/currencybot/core/cmd"
	coreconfig "github.com/m3rciful/currencybot/core/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return bootstrap.Run(bootstrap.Options{Config: cfg.CoreConfig()})
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
