package cmd

import (
	"github.com/pactline/escrowd/src/notify"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Stream deal changes from the database to Redis and AppSync",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := notify.NewController(conf)
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
		log.Debug("Finished notify command")
		applicationCtxCancel()
		return
	},
}
