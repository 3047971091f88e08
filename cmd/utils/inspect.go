package utils

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core"
	"github.com/dominant-strategies/go-tributary/core/rawdb"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
)

// InspectMempool prints the pending transactions of genesis in block order and
// the mempool digest, followed by the chain nonces stored for it.
func InspectMempool(w io.Writer, d db.Database, genesis common.Hash, logger *log.Logger) error {
	mempool := core.NewMempool(d, genesis, MempoolConfig(), types.DecodeSignedTx, logger)
	txs := make([]types.SignedTx, 0, mempool.Len())
	for _, tx := range mempool.Txs() {
		txs = append(txs, tx)
	}
	types.SortByNonce(txs)

	var payload common.StorageSize
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		size := common.StorageSize(len(tx.Payload()))
		payload += size
		rows = append(rows, []string{tx.Hash().Hex(), tx.Signer().Hex(), fmt.Sprint(tx.Nonce()), size.String()})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Hash", "Signer", "Nonce", "Payload"})
	table.SetFooter([]string{"", "Total", fmt.Sprint(len(txs)), payload.String()})
	table.AppendBulk(rows)
	table.Render()
	fmt.Fprintf(w, "Digest: %s\n", mempool.Digest().Hex())

	nonces, err := rawdb.ReadNextNonces(d, genesis)
	if err != nil {
		return err
	}
	signers := make([]common.Signer, 0, len(nonces))
	for signer := range nonces {
		signers = append(signers, signer)
	}
	sort.Slice(signers, func(i, j int) bool { return signers[i].Less(signers[j]) })

	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Signer", "Next nonce"})
	for _, signer := range signers {
		table.Append([]string{signer.Hex(), fmt.Sprint(nonces[signer])})
	}
	table.Render()
	return nil
}
