package cli

import (
	"github.com/spf13/cobra"

	"multicam-logger/pkg/labels"
	"multicam-logger/pkg/utils"
	"multicam-logger/pkg/webdav"
)

func NewServeCmd(root *rootOptions) *cobra.Command {
	var port, webdavPort int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gesture label API",
		Long: "Accepts gesture labels from the experiment UI on POST /api/labels and appends them to " +
			"labels/auto_labels_<pid>.csv. With --webdav-port the dataset is also browsable read-only over WebDAV.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := utils.SignalContext(cmd.Context())
			defer cancel()

			if webdavPort > 0 {
				dav := webdav.New(ctx, webdavPort, root.cfg.BaseDir)
				dav.Start()
				defer dav.Stop()
			}

			logger.Infof("label api on :%d, dataset %s", port, root.cfg.BaseDir)
			return utils.ListenAndServe(ctx, labels.NewRouter(labels.NewStore(root.cfg.BaseDir)), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9999, "label api port")
	cmd.Flags().IntVar(&webdavPort, "webdav-port", 0, "read-only webdav port (0 disables)")

	return cmd
}
