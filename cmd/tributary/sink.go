package main

import (
	"context"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/log"
)

// localSink finalizes every proposed block. It lets a single node exercise
// its tributaries without a consensus protocol.
type localSink struct {
	logger *log.Logger
}

func (s *localSink) ProcessBlock(ctx context.Context, genesis common.Hash, txs []types.SignedTx) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for _, tx := range txs {
		s.logger.WithFields(log.Fields{
			"genesis": genesis.TerminalString(),
			"hash":    tx.Hash(),
			"signer":  tx.Signer().TerminalString(),
			"nonce":   tx.Nonce(),
		}).Trace("Including transaction")
	}
	s.logger.WithFields(log.Fields{
		"genesis": genesis.TerminalString(),
		"txs":     len(txs),
	}).Info("Finalizing block")
	return true, nil
}
