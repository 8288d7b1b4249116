package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/export"
	"github.com/spigell/interviewer/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the report of a stored session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		showReport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("pdf", "", "also write the report to this pdf file")
}

func showReport(cmd *cobra.Command, id string) {
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config.Store)
	if err != nil {
		logger.Fatal("opening the session store", zap.Error(err))
	}
	defer st.Close()

	session, err := st.Get(context.Background(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Fatal("session not found", zap.String("session_id", id))
	case errors.Is(err, store.ErrExpired):
		logger.Fatal("session expired", zap.String("session_id", id), zap.String("hint", "raise store.ttl to keep sessions longer"))
	case err != nil:
		logger.Fatal("loading the session", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, export.RenderTerminal(session))

	if path, _ := cmd.Flags().GetString("pdf"); path != "" {
		if err := export.WritePDF(session, path); err != nil {
			logger.Fatal("writing the pdf report", zap.Error(err))
		}
		logger.Info("pdf report written", zap.String("filename", path))
	}
}
