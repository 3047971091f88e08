package utils

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db/memorydb"
	"github.com/dominant-strategies/go-tributary/log"
)

func TestInspectMempool(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := types.SignerFromKey(key)
	genesis := common.Hash{0x42}
	logger := log.NewNullLogger()

	d := memorydb.New()
	tributary := core.NewTributary(d, genesis, []common.Signer{signer}, core.DefaultMempoolConfig, types.DecodeSignedTx, logger)
	var txs []types.SignedTx
	for n := uint32(0); n < 3; n++ {
		tx, err := types.SignTx(key, genesis, n, bytes.Repeat([]byte{1}, 100))
		require.NoError(t, err)
		require.True(t, tributary.AddTransaction(tx, core.Trusted))
		txs = append(txs, tx)
	}
	require.NoError(t, tributary.FinalizeBlock(txs[:1]))

	var out bytes.Buffer
	require.NoError(t, InspectMempool(&out, d, genesis, logger))

	text := out.String()
	require.NotContains(t, text, txs[0].Hash().Hex())
	require.Contains(t, text, txs[1].Hash().Hex())
	require.Contains(t, text, txs[2].Hash().Hex())
	require.Contains(t, text, signer.Hex())
	require.Contains(t, text, "200.00 B")
	require.Contains(t, text, "Digest: "+tributary.Mempool().Digest().Hex())
}
