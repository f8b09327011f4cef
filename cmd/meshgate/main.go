package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/midoluz/meshgate/pkg/bot"
	"github.com/midoluz/meshgate/pkg/mesh"
	"github.com/midoluz/meshgate/pkg/providers"
	"github.com/midoluz/meshgate/pkg/rest"
	"github.com/midoluz/meshgate/pkg/schedule"
	"github.com/midoluz/meshgate/pkg/store"
)

func usage() {
	flag.PrintDefaults()
}

func showUsageAndExit(exitCode int) {
	fmt.Println("Meshtastic mesh gateway")
	usage()
	os.Exit(exitCode)
}

func main() {
	var configFile = flag.String("c", "", "Configuration file")
	var showHelp = flag.Bool("h", false, "Show help")

	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		showUsageAndExit(0)
	}

	if *configFile == "" {
		log.Fatal("Configuration file is not specified")
	}

	config, err := bot.LoadConfiguration(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport, err := makeTransport(config)
	if err != nil {
		log.Fatalf("Failed to open transport: %s", err.Error())
	}

	iface, err := mesh.Connect(ctx, transport)
	if err != nil {
		log.Fatalf("Failed to connect to the mesh: %s", err.Error())
	}
	defer iface.Close()

	sink, err := makeSink(config)
	if err != nil {
		log.Fatalf("Failed to open event sink: %s", err.Error())
	}
	defer sink.Close()

	outage, demand, transit, err := makeProviders(config)
	if err != nil {
		log.Fatalf("Failed to set up providers: %s", err.Error())
	}

	runner := schedule.NewRunner()
	go runner.Run()
	defer runner.Stop()

	recorder := bot.NewRecorder(sink, config.Store.QueueDepth)
	go recorder.Run(ctx)

	directory := bot.NewDirectory(iface)
	classifier := bot.NewClassifier(directory)
	dispatcher := bot.NewDispatcher(iface, config.Commands.MaxTextLength)
	interpreter := bot.NewInterpreter(
		outage, demand, transit,
		dispatcher, runner,
		config.Commands.Prefix,
		time.Duration(config.Commands.ReplyPacing),
	)

	gateway := bot.New(classifier, directory, recorder, interpreter)

	api := rest.NewServer(config.Rest.Listen, dispatcher)
	go func() {
		if err := api.ListenAndServe(); err != nil {
			log.Fatalf("REST API failed: %s", err.Error())
		}
	}()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = api.Shutdown(shutdownCtx)

		cancel()

		// Unblock the mesh read loop; stream reads do not watch the context
		_ = iface.Close()
	}()

	if err := iface.Run(ctx, gateway.OnPacket); err != nil && ctx.Err() == nil {
		log.Fatalf("Mesh listener failed: %s", err.Error())
	}
}

func makeTransport(config *bot.Configuration) (mesh.Transport, error) {
	switch config.Transport.Kind {
	case "tcp":
		return mesh.NewTCPTransport(config.Transport.Address)
	case "serial":
		return mesh.NewSerialTransport(config.Transport.SerialPort)
	case "mqtt":
		return mesh.NewMQTTTransport(config.Transport.MQTT)
	default:
		return nil, fmt.Errorf("unknown transport kind %q", config.Transport.Kind)
	}
}

func makeSink(config *bot.Configuration) (store.EventSink, error) {
	switch config.Store.Kind {
	case "mysql":
		return store.NewMySQLSink(config.Store.DSN, time.Duration(config.Store.WriteTimeout))
	case "nats":
		return store.NewNATSSink(config.Store.NatsUrl, config.Store.NatsSubjectPrefix)
	case "none":
		return store.Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", config.Store.Kind)
	}
}

func makeProviders(config *bot.Configuration) (providers.MessageProvider, providers.StatusProvider, providers.StatusProvider, error) {
	timeout := time.Duration(config.Providers.Timeout)

	outage := &providers.OutageProvider{
		URL:     config.Providers.OutageUrl,
		Timeout: timeout,
	}

	demand := &providers.DemandProvider{
		URL:     config.Providers.DemandUrl,
		Timeout: timeout,
	}

	transit, err := providers.NewSubteProvider(config.Providers.SubteDsn, timeout)
	if err != nil {
		return nil, nil, nil, err
	}

	return outage, demand, transit, nil
}
