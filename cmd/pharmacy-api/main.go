package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/app"
	"github.com/vladislavdragonenkov/pharmacy/internal/version"
)

var (
	showVersion = flag.Bool("version", false, "print build info and exit")
	configFile  = flag.String("config", "", "config file (overrides "+app.EnvConfigFile+")")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	if *configFile != "" {
		_ = os.Setenv(app.EnvConfigFile, *configFile)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("не удалось прочитать конфигурацию")
	}
	if err := app.SetupLogger(cfg); err != nil {
		log.WithError(err).Fatal("не удалось настроить логирование")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"environment":  cfg.Environment,
	}).Info("запускаем pharmacy-api")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("pharmacy-api остановлен")
}
