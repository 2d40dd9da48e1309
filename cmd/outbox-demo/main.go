// Command outbox-demo records purchases over HTTP and delivers a
// confirmation email message for each one through the transactional outbox.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/enverbisevac/txoutbox/lock"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	addr := flag.String("addr", "", "HTTP listen address, overrides http.addr")
	flag.Parse()

	log := stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lmicroseconds))

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Error(err, "failed to load configuration")
		os.Exit(1)
	}
	if *addr != "" {
		config.HTTP.Addr = *addr
	}
	stdr.SetVerbosity(config.Log.Verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, config); err != nil {
		log.Error(err, "outbox-demo stopped")
		os.Exit(1)
	}
	log.Info("outbox-demo stopped")
}

func run(ctx context.Context, log logr.Logger, config Config) error {
	ctx = logr.NewContext(ctx, log)

	backend, err := OpenBackend(ctx, config.Database)
	if err != nil {
		return err
	}
	defer backend.Close()

	broker, err := OpenBroker(ctx, config.Broker)
	if err != nil {
		return err
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.Error(err, "failed to close broker")
		}
	}()

	app, err := NewApp(log, config, backend, broker, lock.NewOwner())
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
