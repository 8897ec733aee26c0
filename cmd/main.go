package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"skoll/internal/account"
	"skoll/internal/api"
	"skoll/internal/engine"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine, accounts and the HTTP surface.
	eng := engine.New()
	accounts := account.NewStore()
	srv := api.New("0.0.0.0", 8000, eng, accounts)

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return eng.Run(t)
	})
	t.Go(func() error {
		return srv.Run(ctx)
	})

	// Block until a signal or a fatal error brings everything down.
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("exited with error")
	}
}
