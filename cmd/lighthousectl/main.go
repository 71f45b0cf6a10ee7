package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/fako1024/btlighthouse"
	"github.com/fako1024/btlighthouse/bluezlink"
	"github.com/fako1024/btlighthouse/gattlink"
)

type config struct {
	backend string
	adapter string
	dbus    string
	debug   bool
}

func main() {

	// Parse command line options
	var cfg config
	flag.StringVar(&cfg.backend, "backend", "gatt", "radio backend to use (gatt or bluez)")
	flag.StringVar(&cfg.adapter, "adapter", "", "bluetooth adapter for the bluez backend (default hci0)")
	flag.StringVar(&cfg.dbus, "dbus", "", "dbus address for the bluez backend (default system bus)")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	logger := btlighthouse.NewDefaultLogger(cfg.debug)

	args := flag.Args()
	if len(args) < 1 {
		logger.Fatalf("usage: lighthousectl [flags] <on|sleep|standby|scan> [name ...]")
	}

	command, err := btlighthouse.ParseCommand(args[0])
	if err != nil {
		logger.Fatalf("%s", err)
	}

	central, err := newCentral(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize %s backend: %s", cfg.backend, err)
	}
	if closer, ok := central.(io.Closer); ok {
		defer closer.Close()
	}

	controller, err := btlighthouse.New(central, btlighthouse.WithLogger(logger))
	if err != nil {
		logger.Fatalf("failed to initialize controller: %s", err)
	}

	state, err := controller.Run(command, btlighthouse.NewFilter(args[1:]))
	if err != nil {
		logger.Fatalf("run failed: %s", err)
	}

	logger.Infof("run finished (%s)", state)
}

func newCentral(cfg config, logger btlighthouse.Logger) (btlighthouse.Central, error) {
	switch cfg.backend {
	case "gatt":
		return gattlink.NewCentral(gattlink.WithLogger(logger))
	case "bluez":
		options := []func(*bluezlink.Central){bluezlink.WithLogger(logger)}
		if cfg.adapter != "" {
			options = append(options, bluezlink.WithDevice(cfg.adapter))
		}
		if cfg.dbus != "" {
			options = append(options, bluezlink.WithDBusAddress(cfg.dbus))
		}
		return bluezlink.NewCentral(options...)
	}

	return nil, fmt.Errorf("unknown backend `%s` (want gatt or bluez)", cfg.backend)
}
