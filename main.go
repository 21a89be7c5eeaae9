package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gologme/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mailhive/mailhive/server"
)

func main() {
	confPath := flag.String("conf", "mailhive.toml", "path to the config file")
	flag.Parse()

	green := color.New(color.FgGreen).SprintfFunc()
	logger := log.New(os.Stdout, green("[ mailhive ] "), log.LstdFlags|log.Lmsgprefix)
	logger.EnableLevel("warn")
	logger.EnableLevel("error")
	logger.EnableLevel("info")

	config, err := server.LoadConfig(*confPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if config.Debug {
		logger.EnableLevel("debug")
	}

	s, err := server.New(config, logger)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}
	if err := s.Start(); err != nil {
		logger.Fatalf("startup: %v", err)
	}

	if config.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Infof("metrics: listening on %s", config.MetricsAddr)
			if err := http.ListenAndServe(config.MetricsAddr, nil); err != nil {
				logger.Errorf("metrics: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infoln("shutting down")
	s.Shutdown()
}
