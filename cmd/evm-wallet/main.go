package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AlexZinkM/evm-wallet/internal/api"
	"github.com/AlexZinkM/evm-wallet/internal/client"
	"github.com/AlexZinkM/evm-wallet/internal/config"
	"github.com/AlexZinkM/evm-wallet/internal/crypto"
	"github.com/AlexZinkM/evm-wallet/internal/handler"
	"github.com/AlexZinkM/evm-wallet/internal/logger"
	"github.com/AlexZinkM/evm-wallet/internal/model"
	"github.com/AlexZinkM/evm-wallet/internal/storage"
	"github.com/AlexZinkM/evm-wallet/wallet"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:          "evm-wallet",
		Short:        "Local EVM wallet",
		Long:         `Local EVM wallet: encrypted accounts in leveldb, signing and broadcasting through JSON-RPC, served as a REST API for the UI.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(phraseCmd())
	rootCmd.AddCommand(addressCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to execute command:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var unlock bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wallet REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(unlock)
		},
	}
	cmd.Flags().BoolVar(&unlock, "unlock", false, "Prompt for the wallet password and unlock at startup")
	return cmd
}

func serve(unlock bool) error {
	if err := config.Init(); err != nil {
		return err
	}
	cfg := config.Get()

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Read the password before anything else writes to the terminal
	if unlock {
		if err := config.PromptForPassword(); err != nil {
			return err
		}
	}

	store, err := storage.Open(config.GetDataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	cipher, err := crypto.NewCipher(crypto.Params{N: cfg.VaultScryptN, R: 8, P: 1})
	if err != nil {
		return err
	}

	w, err := wallet.New(wallet.Options{
		Storage: store,
		Dial: func(ctx context.Context, n model.Network) (wallet.Ledger, error) {
			c, err := client.DialEthereum(ctx, n.RPCURL, cfg.RPCTimeout, log)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Explorer:         client.NewExplorerClient(cfg.RPCTimeout),
		Cipher:           cipher,
		Strategies:       crypto.Strategies(cfg.StrictWordlist),
		RefreshInterval:  cfg.RefreshInterval,
		SendRefreshDelay: cfg.SendRefreshDelay,
		Logger:           log,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if unlock {
		password, err := config.TakePasswordBytes()
		if err != nil {
			return err
		}
		ok := w.UnlockWallet(password)
		clear(password)
		if !ok {
			return wallet.ErrIncorrectPassword
		}
	}

	srv := &http.Server{
		Addr:         ":" + config.GetPort(),
		Handler:      api.SetupRouter(handler.NewWalletHandler(w, log), log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("wallet API listening", zap.String("addr", srv.Addr), zap.String("state", string(w.State())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func phraseCmd() *cobra.Command {
	var words int

	cmd := &cobra.Command{
		Use:   "phrase",
		Short: "Generate a new recovery phrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase, err := crypto.GeneratePhrase(words)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), phrase)
			return nil
		},
	}
	cmd.Flags().IntVarP(&words, "words", "w", 12, "Number of words (12 or 24)")
	return cmd
}

func addressCmd() *cobra.Command {
	var (
		key    string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "address [recovery phrase words...]",
		Short: "Print the address of a recovery phrase or private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				priv []byte
				err  error
			)
			switch {
			case key != "":
				priv, err = crypto.PrivateKeyFromHex(key)
			case len(args) > 0:
				var d *crypto.Derivation
				d, err = crypto.DeriveFromPhrase(strings.Join(args, " "), crypto.Strategies(strict))
				if err == nil {
					priv = d.PrivateKey
					fmt.Fprintln(cmd.ErrOrStderr(), "strategy:", d.Strategy)
				}
			default:
				return errors.New("pass a recovery phrase or --key")
			}
			if err != nil {
				return err
			}
			defer clear(priv)

			addr, err := crypto.AddressFromPrivateKey(priv)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Hex private key (with or without 0x)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject phrases outside the BIP-39 wordlist")
	return cmd
}
