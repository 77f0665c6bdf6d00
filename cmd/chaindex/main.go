package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/urfave/cli/v2"

	"github.com/chaindex-network/chaindexd/config"
	"github.com/chaindex-network/chaindexd/internal/core/domain"
	"github.com/chaindex-network/chaindexd/internal/core/ports"
	dbbadger "github.com/chaindex-network/chaindexd/internal/infrastructure/storage/db/badger"
	"github.com/chaindex-network/chaindexd/pkg/mathutil"
)

func main() {
	app := &cli.App{
		Name:  "chaindex",
		Usage: "inspect the state of a chaindexd data directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "datadir",
				Usage: "data directory of the daemon",
				Value: config.GetDatadir(),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "pairs",
				Usage:  "list the registered trading pairs",
				Action: listPairs,
			},
			{
				Name:      "orders",
				Usage:     "list the open orders of a pair",
				ArgsUsage: "<pair hash>",
				Action:    listOrders,
			},
			{
				Name:      "deals",
				Usage:     "list the deals settled on a pair",
				ArgsUsage: "<pair hash>",
				Action:    listDeals,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRepos(ctx *cli.Context) (ports.RepoManager, error) {
	config.Set(config.DatadirKey, ctx.String("datadir"))
	return dbbadger.NewRepoManager(config.GetDbDir(), nil)
}

func pairArg(ctx *cli.Context) (*chainhash.Hash, error) {
	if ctx.NArg() < 1 {
		return nil, fmt.Errorf("missing pair hash argument")
	}
	return chainhash.NewHashFromStr(ctx.Args().First())
}

func listPairs(ctx *cli.Context) error {
	repoManager, err := openRepos(ctx)
	if err != nil {
		return err
	}
	defer repoManager.Close()

	pairs, err := repoManager.PairRepository().GetAllPairs(context.Background())
	if err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Printf(
			"%s base=%d/%d quote=%d/%d min=%s creator=%s\n",
			p.Hash.String(),
			p.BaseAsset.Chain, p.BaseAsset.Asset,
			p.QuoteAsset.Chain, p.QuoteAsset.Asset,
			mathutil.ToUnitString(p.MinBaseAmount, p.BaseDecimals),
			p.Creator,
		)
	}
	return nil
}

func listOrders(ctx *cli.Context) error {
	repoManager, err := openRepos(ctx)
	if err != nil {
		return err
	}
	defer repoManager.Close()

	hash, err := pairArg(ctx)
	if err != nil {
		return err
	}
	pair, err := repoManager.PairRepository().GetPair(context.Background(), *hash)
	if err != nil {
		return err
	}
	orders, err := repoManager.OrderRepository().GetOrdersByPair(
		context.Background(), *hash,
	)
	if err != nil {
		return err
	}
	for _, o := range orders {
		side := "buy"
		if o.Side == domain.OrderSideSell {
			side = "sell"
		}
		fmt.Printf(
			"%s %s price=%s amount=%s left=%s owner=%s\n",
			o.Hash.String(), side,
			mathutil.ToUnitString(o.Price, pair.QuoteDecimals),
			mathutil.ToUnitString(o.Amount, pair.BaseDecimals),
			mathutil.ToUnitString(o.LeftAmount(), pair.BaseDecimals),
			o.Owner,
		)
	}
	return nil
}

func listDeals(ctx *cli.Context) error {
	repoManager, err := openRepos(ctx)
	if err != nil {
		return err
	}
	defer repoManager.Close()

	hash, err := pairArg(ctx)
	if err != nil {
		return err
	}
	pair, err := repoManager.PairRepository().GetPair(context.Background(), *hash)
	if err != nil {
		return err
	}
	deals, err := repoManager.DealRepository().GetDealsByPair(
		context.Background(), *hash,
	)
	if err != nil {
		return err
	}
	for _, d := range deals {
		fmt.Printf(
			"%s price=%s base=%s quote=%s height=%d\n",
			d.Hash.String(),
			mathutil.ToUnitString(d.Price, pair.QuoteDecimals),
			mathutil.ToUnitString(d.BaseAmount, pair.BaseDecimals),
			mathutil.ToUnitString(d.QuoteAmount, pair.QuoteDecimals),
			d.Height,
		)
	}
	return nil
}
