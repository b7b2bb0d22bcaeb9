package cmd

import (
	"github.com/pactline/escrowd/src/archive"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Produce escrow events to the audit topic",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := archive.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished archive command")
		applicationCtxCancel()
		return
	},
}
