package cmd

import (
	"github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = model.Migrate(applicationCtx, conf)
		if err != nil {
			return
		}

		log := logger.NewSublogger("root-cmd")
		log.Info("Migrations applied")

		applicationCtxCancel()
		return
	},
}
