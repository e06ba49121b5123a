package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/multiwallet-network/mwallet-daemon/internal/config"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/application"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/domain"
	"github.com/multiwallet-network/mwallet-daemon/internal/core/ports"
	"github.com/multiwallet-network/mwallet-daemon/internal/infrastructure/noderpc"
	notestore "github.com/multiwallet-network/mwallet-daemon/internal/infrastructure/storage/notes"
	"github.com/multiwallet-network/mwallet-daemon/internal/infrastructure/walletfile"
	"github.com/multiwallet-network/mwallet-daemon/internal/operators/evm"
	"github.com/multiwallet-network/mwallet-daemon/internal/operators/fiber"
)

func main() {
	app := &cli.App{
		Name:  "mwalletd",
		Usage: "headless multicoin wallet daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "coin",
				Usage: "name or ticker of the coin to activate at startup",
				Value: supportedCoins[0].Name,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("daemon exited with error")
	}
}

func run(ctx *cli.Context) error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	coin, ok := coinByName(ctx.String("coin"))
	if !ok {
		return fmt.Errorf("unsupported coin %q", ctx.String("coin"))
	}

	periods := ports.RefreshPeriods{
		Local:  config.GetDuration(config.LocalUpdatePeriodKey),
		Remote: config.GetDuration(config.RemoteUpdatePeriodKey),
		Error:  config.GetDuration(config.ErrorUpdatePeriodKey),
	}

	node := noderpc.NewClient(noderpc.Opts{
		Timeout:           config.GetDuration(config.RPCTimeoutKey),
		RequestsPerSecond: config.GetFloat(config.RPCRateLimitKey),
		TokenBurst:        config.GetInt(config.RPCTokenBurstKey),
	})

	walletsPath := config.GetString(config.WalletsFileKey)
	if !filepath.IsAbs(walletsPath) {
		walletsPath = filepath.Join(config.GetDatadir(), walletsPath)
	}
	wallets, err := walletfile.NewSource(walletsPath)
	if err != nil {
		return err
	}

	var notes ports.NoteStore
	if !config.GetBool(config.NoNotesStoreKey) {
		notesDir := filepath.Join(
			config.GetDatadir(), config.NotesDbLocation,
		)
		notes, err = notestore.NewNoteStore(notesDir, nil)
		if err != nil {
			return err
		}
		defer notes.Close()
	}

	evmOpts := evm.Opts{
		Node: node, Wallets: wallets, Notes: notes, Periods: periods,
	}
	fiberOpts := fiber.Opts{
		Node: node, Wallets: wallets, Notes: notes, Periods: periods,
	}
	operators := application.NewOperatorService(
		map[domain.CoinFamily]application.BundleFactory{
			domain.EVMFamily:   evm.NewBundleFactory(evmOpts),
			domain.FiberFamily: fiber.NewBundleFactory(fiberOpts),
		},
	)
	defer operators.Dispose()

	if err := operators.SetActiveCoin(coin); err != nil {
		return err
	}

	log.Debug("starting daemon")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
	return nil
}
