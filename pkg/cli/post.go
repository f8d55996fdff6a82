package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/config"
	"multicam-logger/pkg/labels"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/storage/consts"
	"multicam-logger/pkg/video"
)

func NewMergeLabelsCmd(root *rootOptions) *cobra.Command {
	var participant string
	cmd := &cobra.Command{
		Use:   "merge-labels",
		Short: "Add the gesture label to every frame of a participant's device logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stg, err := storage.New(root.cfg.BaseDir, participant)
			if err != nil {
				return err
			}
			written, err := labels.MergeParticipant(stg)
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&participant, "participant", "p", config.DefaultParticipant, "participant id")

	return cmd
}

func NewExportCmd(root *rootOptions) *cobra.Command {
	var (
		participant, device, channel, out string
		fps                               int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build an MJPEG AVI from the recorded frames of one device channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			stg, err := storage.New(root.cfg.BaseDir, participant)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(stg.LogDir(), device+"_"+channel+consts.DefaultVideoExt)
			}
			n, err := video.Export(stg.LogPath(device), channel, out, fps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames\n", out, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&participant, "participant", "p", config.DefaultParticipant, "participant id")
	cmd.Flags().StringVar(&device, "device", "", "device name")
	cmd.Flags().StringVar(&channel, "channel", string(camera.Color), "color, depth or ir")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <logs>/<device>_<channel>.avi)")
	cmd.Flags().IntVar(&fps, "fps", camera.DefaultFPS, "frame rate of the video")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func NewDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the V4L2 capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := camera.ListDevices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tmax %dx%d\n",
					d.Path, d.Driver, d.Card, d.BusInfo, d.MaxWidth, d.MaxHeight)
			}
			return nil
		},
	}
}
