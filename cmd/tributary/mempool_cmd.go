package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-tributary/cmd/utils"
	"github.com/dominant-strategies/go-tributary/log"
)

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "mempool maintenance commands",
}

var mempoolInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "prints the pending transactions of a tributary",
	Long: `loads the mempool of every tributary given with --genesis from the database
and prints its pending transactions in block order, followed by the chain nonces
stored for the tributary. The database is opened read-only.`,
	RunE:         runMempoolInspect,
	SilenceUsage: true,
	Example:      `tributary mempool inspect --genesis=0x...`,
}

func init() {
	rootCmd.AddCommand(mempoolCmd)
	mempoolCmd.AddCommand(mempoolInspectCmd)

	utils.CreateAndBindFlag(utils.GenesisFlag, mempoolInspectCmd)
	for _, flag := range utils.MempoolFlags {
		utils.CreateAndBindFlag(flag, mempoolInspectCmd)
	}
}

func runMempoolInspect(cmd *cobra.Command, args []string) error {
	genesises, err := utils.ParseGenesises(viper.GetStringSlice(utils.GenesisFlag.Name))
	if err != nil {
		return err
	}

	d, err := utils.OpenDatabase(viper.GetString(utils.DBEngineFlag.Name), viper.GetString(utils.DataDirFlag.Name), true, log.Global)
	if err != nil {
		return err
	}
	defer d.Close()

	for _, genesis := range genesises {
		cmd.Printf("Tributary %s\n", genesis.Hex())
		if err := utils.InspectMempool(os.Stdout, d, genesis, log.Global); err != nil {
			return err
		}
	}
	return nil
}
