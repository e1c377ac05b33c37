// Command meridian is the node and CLI front-end: it wires the core
// transaction/block pipeline into a running node ("node start") and submits
// instruction/query envelopes to a peer's RPC surface ("tx submit",
// "query get"), per spec.md §6's CLI contract. Exit codes: 0 on success,
// non-zero with a diagnostic on error; the "tx" and "query" subcommands
// never touch the block store directly.
//
// Grounded on the teacher's cmd/synnergy/main.go (cobra root command,
// AddCommand-per-subsystem shape, flag-driven subcommands).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"meridian-node/core"
	"meridian-node/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "meridian"}
	rootCmd.AddCommand(nodeCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(queryCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "node"}
	start := &cobra.Command{
		Use:   "start",
		Short: "start a node: load genesis, open the block store, run the actor topology",
		RunE:  runNodeStart,
	}
	start.Flags().String("genesis", "", "path to genesis.yaml (default config/genesis.yaml)")
	cmd.AddCommand(start)
	return cmd
}

func runNodeStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"block_store_path": cfg.Kura.BlockStorePath,
		"init_mode":        cfg.Kura.InitMode,
	}).Info("meridian: starting node")

	mode, err := core.ParseKuraInitMode(cfg.Kura.InitMode)
	if err != nil {
		return err
	}

	genesisPath, _ := cmd.Flags().GetString("genesis")
	if genesisPath == "" {
		genesisPath = "config/genesis.yaml"
	}
	gen, err := core.LoadGenesis(genesisPath)
	if err != nil {
		return err
	}

	kp, err := core.GenerateKeyPair()
	if err != nil {
		return err
	}
	selfID := core.NewPeerId(cfg.Torii.URL, kp.Public)

	peer, err := gen.Apply(selfID)
	if err != nil {
		return err
	}

	kura := core.NewKura(cfg.Kura.BlockStorePath, mode)
	blocks, err := kura.Init(peer)
	if err != nil {
		return err
	}

	wsv := core.NewWorldStateView(peer)
	if err := wsv.Init(blocks); err != nil {
		return err
	}

	queue := core.NewPendingQueue(cfg.Queue.Capacity, cfg.Transaction.MaxTTLMs)
	consensus := core.NewSoloConsensus(wsv)
	topology := core.NewTopology(wsv, kura, queue, consensus, nil,
		time.Duration(cfg.Consensus.TickIntervalMs)*time.Millisecond, cfg.Queue.Capacity)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Info("meridian: node running, press ctrl-c to stop")
	topology.Run(ctx)
	return nil
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tx"}
	submit := &cobra.Command{
		Use:   "submit <envelope.json>",
		Short: "submit a signed transaction envelope to a peer's RPC URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runTxSubmit,
	}
	cmd.AddCommand(submit)
	return cmd
}

func runTxSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return postJSON(cfg.Torii.URL+"/transactions", body)
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "query"}
	get := &cobra.Command{
		Use:   "get <envelope.json>",
		Short: "submit a query envelope to a peer's RPC URL and print the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueryGet,
	}
	cmd.AddCommand(get)
	return cmd
}

func runQueryGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	resp, err := http.Post(cfg.Torii.URL+"/queries", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func postJSON(url string, body []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	return nil
}
