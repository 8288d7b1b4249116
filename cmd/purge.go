package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired sessions from the store",
	Run: func(_ *cobra.Command, _ []string) {
		purge()
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func purge() {
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

	removed, err := st.PurgeExpired(context.Background())
	if err != nil {
		logger.Fatal("purging expired sessions", zap.Error(err))
	}
	logger.Info("expired sessions removed", zap.Int("count", removed))
}
