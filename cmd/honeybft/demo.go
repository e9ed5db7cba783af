package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/honeybft/honeybft/coin"
	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
	"github.com/honeybft/honeybft/log"
	"github.com/honeybft/honeybft/net"
	"github.com/honeybft/honeybft/rbc"
)

var faultsFlag = &cli.IntFlag{
	Name:  "faults",
	Value: 1,
	Usage: "Fault tolerance f; the demo runs N = 3f+1 parties.",
}

var roundsFlag = &cli.IntFlag{
	Name:  "rounds",
	Value: 4,
	Usage: "Number of coin rounds to flip.",
}

var payloadFlag = &cli.StringFlag{
	Name:  "payload",
	Value: "hello, asynchronous world",
	Usage: "Value the leader broadcasts.",
}

func demoCmd(c *cli.Context) error {
	l := logger(c)
	f := c.Int(faultsFlag.Name)
	if f < 1 {
		return fmt.Errorf("faults must be at least 1, got %d", f)
	}
	n := 3*f + 1

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	if err := demoBroadcast(ctx, l, n, f, []byte(c.String(payloadFlag.Name))); err != nil {
		return err
	}
	return demoCoin(ctx, l, n, f, c.Int(roundsFlag.Name))
}

// demoBroadcast runs one RBC session across n in-process parties with
// party 0 as leader.
func demoBroadcast(ctx context.Context, l log.Logger, n, f int, payload []byte) error {
	network := net.NewRBCNetwork(n, 4*n*n)
	defer network.Close()

	outputs := make([]*rbc.Output, n)
	var group errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		r, err := rbc.New(rbc.Config{
			SessionID:      1,
			NodeID:         i,
			TotalNodes:     n,
			FaultTolerance: f,
			LeaderID:       0,
		}, network.Node(i), l)
		if err != nil {
			return err
		}
		var input []byte
		if i == 0 {
			input = payload
		}
		group.Go(func() error {
			out, err := r.Run(ctx, input, network.Node(i))
			outputs[i] = out
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("broadcast session: %w", err)
	}

	for i, out := range outputs {
		l.Infow("party delivered", "party", i, "root", fmt.Sprintf("%x", out.Root[:8]), "value", string(out.Data))
	}
	return nil
}

// demoCoin deals a fresh f+1-of-n key and flips the requested number of
// common coins across all parties.
func demoCoin(ctx context.Context, l log.Logger, n, f, rounds int) error {
	ks, err := key.Generate(crypto.NewTBLSScheme(), n, f+1)
	if err != nil {
		return err
	}

	network := net.NewCoinNetwork(n, 4*n*rounds)
	defer network.Close()

	runCtx, stopRuns := context.WithCancel(ctx)
	defer stopRuns()

	coins := make([]*coin.CommonCoin, n)
	for i := 0; i < n; i++ {
		coins[i], err = coin.NewCommonCoin(&coin.Config{
			SessionID:      2,
			NodeID:         i,
			TotalNodes:     n,
			FaultTolerance: f,
		}, coin.NewVault(ks.Public, ks.Shares[i]), network.Node(i), l)
		if err != nil {
			return err
		}
		go func(i int) {
			_ = coins[i].Run(runCtx, network.Node(i))
		}(i)
	}

	bits := make([][]uint8, n)
	var group errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		bits[i] = make([]uint8, rounds)
		group.Go(func() error {
			for r := 0; r < rounds; r++ {
				bit, err := coins[i].GetCoin(ctx, uint64(r))
				if err != nil {
					return err
				}
				bits[i][r] = bit
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("coin rounds: %w", err)
	}

	for r := 0; r < rounds; r++ {
		for i := 1; i < n; i++ {
			if bits[i][r] != bits[0][r] {
				return fmt.Errorf("party %d disagrees on round %d", i, r)
			}
		}
		l.Infow("coin agreed", "round", r, "bit", bits[0][r])
	}
	return nil
}
