package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dominant-strategies/go-tributary/cmd/utils"
	"github.com/dominant-strategies/go-tributary/log"
	"github.com/dominant-strategies/go-tributary/metrics_config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the tributaries of this validator",
	Long: `starts one mempool and block producer per tributary given with --genesis.
Pending transactions are loaded from the database selected by --db-engine.
Every proposed block is finalized locally; no consensus is run.`,
	RunE:                       runStart,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	Example:                    `tributary start --genesis=0x... --validators=0x...,0x... -l debug`,
	PreRunE:                    startCmdPreRun,
}

func init() {
	rootCmd.AddCommand(startCmd)

	// Create and bind all node flags to the start command
	for _, flag := range utils.NodeFlags {
		utils.CreateAndBindFlag(flag, startCmd)
	}

	for _, flag := range utils.MempoolFlags {
		utils.CreateAndBindFlag(flag, startCmd)
	}

	// Create and bind all metrics flags to the start command
	for _, flag := range utils.MetricsFlags {
		utils.CreateAndBindFlag(flag, startCmd)
	}
}

func startCmdPreRun(cmd *cobra.Command, args []string) error {
	if len(viper.GetStringSlice(utils.GenesisFlag.Name)) == 0 {
		return errors.New("no tributary to run, set --" + utils.GenesisFlag.Name)
	}
	if len(viper.GetStringSlice(utils.ValidatorsFlag.Name)) == 0 {
		return errors.New("empty validator set, set --" + utils.ValidatorsFlag.Name)
	}
	_, err := utils.BlockInterval()
	return err
}

func runStart(cmd *cobra.Command, args []string) error {
	log.Global.Info("Starting go-tributary")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genesises, err := utils.ParseGenesises(viper.GetStringSlice(utils.GenesisFlag.Name))
	if err != nil {
		return err
	}
	validators, err := utils.ParseValidators(viper.GetStringSlice(utils.ValidatorsFlag.Name))
	if err != nil {
		return err
	}
	interval, err := utils.BlockInterval()
	if err != nil {
		return err
	}

	d, err := utils.OpenDatabase(viper.GetString(utils.DBEngineFlag.Name), viper.GetString(utils.DataDirFlag.Name), false, log.Global)
	if err != nil {
		log.Global.WithField("error", err).Fatal("error opening database")
	}
	defer d.Close()
	if err := utils.CheckDatabaseVersion(d, log.Global); err != nil {
		log.Global.WithField("error", err).Fatal("incompatible database")
	}

	logLevel := cmd.Flag(utils.LogLevelFlag.Name).Value.String()
	tributaries, err := utils.StartTributaries(d, genesises, validators, logLevel)
	if err != nil {
		log.Global.WithField("error", err).Fatal("error starting tributaries")
	}

	if viper.GetBool(utils.MetricsEnabledFlag.Name) {
		log.Global.Info("Starting metrics")
		metrics_config.EnableMetrics()
		metrics_config.StartProcessMetrics(viper.GetString(utils.MetricsPortFlag.Name))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tributaries.Run(ctx, interval, &localSink{logger: log.Global}); err != nil {
			log.Global.WithField("error", err).Error("Block production stopped")
		}
	}()

	// wait for a SIGINT or SIGTERM signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Global.Warn("Received 'stop' signal, shutting down gracefully...")
	cancel()
	wg.Wait()
	log.Global.Warn("Node is offline")
	return nil
}
