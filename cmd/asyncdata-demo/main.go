// Command asyncdata-demo serves server-rendered pages whose async data is
// handed to the client through a payload store, and runs a client that
// hydrates from it.
//
//	asyncdata-demo -config demo.yaml
//	asyncdata-demo client -url http://localhost:8080 -route /users/1 -clear 'key == "served-at"'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdslog "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/unkn0wn-root/asyncdata"
	asynchook "github.com/unkn0wn-root/asyncdata/hooks/async"
	adzerolog "github.com/unkn0wn-root/asyncdata/log/zerolog"
	"github.com/unkn0wn-root/asyncdata/payloadstore"
	"github.com/unkn0wn-root/asyncdata/sloghooks"
)

var (
	configFilenameFlag string
	listenFlag         string
	providerFlag       string
	codecFlag          string
	verbosityDebugFlag bool
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&listenFlag, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&providerFlag, "provider", "", "Payload provider: ristretto, bigcache or redis (overrides config)")
	flag.StringVar(&codecFlag, "codec", "", "Payload codec: json, msgpack, cbor or protobuf (overrides config)")
	flag.BoolVar(&verbosityDebugFlag, "debug", false, "Verbosity: debug logging")
}

func main() {
	flag.Parse()

	config := defaultConfig()
	if configFilenameFlag != "" {
		var err error
		if config, err = getConfig(configFilenameFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if listenFlag != "" {
		config.Listen = listenFlag
	}
	if providerFlag != "" {
		config.Payload.Provider = providerFlag
	}
	if codecFlag != "" {
		config.Payload.Codec = codecFlag
	}
	if verbosityDebugFlag {
		config.Log.Level = "debug"
	}
	setupLogging(config.Log)

	// hook events go through slog on a background worker
	hooks := asynchook.New(sloghooks.New(stdslog.Default(), sloghooks.Options{SupersededEvery: 10}), 1, 1024)
	defer hooks.Close()
	logger := adzerolog.New(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.Arg(0) == "client" {
		if err := clientMain(ctx, flag.Args()[1:], logger, hooks); err != nil {
			log.Fatal().Err(err).Msg("client failed")
		}
		return
	}
	if err := serve(ctx, config, logger, hooks); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging(c LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.JSON {
		log.Logger = log.Level(level).Output(os.Stdout)
		return
	}
	log.Logger = log.Level(level).Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func serve(ctx context.Context, config Config, logger asyncdata.Logger, hooks asyncdata.Hooks) error {
	cd, err := config.codec()
	if err != nil {
		return err
	}
	provider, gens, closeBackend, err := config.backend()
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := payloadstore.New(payloadstore.Options{
		Namespace: config.Namespace,
		Provider:  provider,
		Codec:     cd,
		TTL:       config.Payload.TTL,
		MaxDecode: config.Payload.MaxDecode,
		GenStore:  gens,
		Logger:    logger,
		Hooks:     hooks,
	})
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           newServer(store, logger, hooks).routesHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().
		Str("addr", config.Listen).
		Str("provider", config.Payload.Provider).
		Str("codec", store.ContentType()).
		Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func clientMain(ctx context.Context, args []string, logger asyncdata.Logger, hooks asyncdata.Hooks) error {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8080", "Server base URL")
	route := fs.String("route", "/users/1", "Page route whose payload to hydrate from")
	clearExpr := fs.String("clear", "", "keyfilter expression: clear matching keys and refetch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rep, err := runClient(ctx, clientConfig{
		BaseURL: *baseURL,
		Route:   *route,
		Clear:   *clearExpr,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}, logger, hooks)
	if err != nil {
		return err
	}
	ev := log.Info().Str("hydrated", rep.Hydrated.Name).Strs("cleared", rep.Cleared)
	if rep.Refetched != nil {
		ev = ev.Str("refetched", rep.Refetched.Name)
	}
	ev.Msg("client done")
	return nil
}
