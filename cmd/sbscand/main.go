// Command sbscand runs the BLE scanning daemon: it drives discovery through
// BlueZ, keeps the merged per-device cache, serves the binary control
// protocol over TCP, and optionally publishes decoded readings to MQTT.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sbkit/sbscan/config"
	"github.com/sbkit/sbscan/logger"
	"github.com/sbkit/sbscan/proto"
	"github.com/sbkit/sbscan/publish"
	"github.com/sbkit/sbscan/radio/bluez"
	"github.com/sbkit/sbscan/scanner"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	listenAddr := flag.String("listen", "", "override the control protocol listen address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", "path", *configPath, "error", err)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}

	log := newLogger(cfg)
	logger.SetLogger(log)

	radio := bluez.New(cfg.Radio.Adapter, log)
	defer radio.Close()

	scan, err := scanner.New(radio, log)
	if err != nil {
		log.Fatal("failed to create scanner", "error", err)
	}

	var pub *publish.Publisher
	if cfg.MQTT.Enabled {
		pub, err = publish.Connect(cfg.MQTT, log)
		if err != nil {
			log.Fatal("failed to connect to mqtt broker", "broker", cfg.MQTT.Broker, "error", err)
		}
		defer pub.Close()

		scan.SetMergedHandler(func(rec scanner.DeviceRecord) {
			if err := pub.PublishRecord(rec); err != nil {
				log.Warn("failed to publish reading", "addr", rec.Addr, "error", err)
			}
		})
	}

	dispatcher := proto.NewDispatcher(scan, log)
	server := proto.NewServer(dispatcher, log)
	if err := server.Listen(cfg.Server.Listen); err != nil {
		log.Fatal("failed to listen", "addr", cfg.Server.Listen, "error", err)
	}
	defer server.Close()

	log.Info("control server listening", "addr", server.Addr().String())

	if cfg.Server.AutoStart {
		reply := dispatcher.Handle([]byte{proto.OpBLEStart})
		if len(reply) > 0 && reply[0] != proto.StatusOK {
			log.Fatal("radio auto-start failed", "reply", reply)
		}
		log.Info("radio auto-started", "adapter", cfg.Radio.Adapter)
	}

	exitSig := make(chan os.Signal, 1)
	signal.Notify(exitSig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-exitSig

	log.Info("exit signal received")

	if dispatcher.Started() {
		_ = scan.Stop()
	}

	log.Info("shutdown finished")
}

func newLogger(cfg *config.Config) logger.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		logger.Fatal("invalid log level", "error", err)
	}

	if cfg.Logging.File == "" {
		return logger.NewSlog(level, cfg.Logging.AddSource)
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   true,
	}

	return logger.NewSlogWriter(rotated, level, cfg.Logging.AddSource)
}
