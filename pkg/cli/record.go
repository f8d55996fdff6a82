package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"multicam-logger/pkg/camera"
	"multicam-logger/pkg/config"
	"multicam-logger/pkg/recorder"
	"multicam-logger/pkg/storage"
	"multicam-logger/pkg/utils"
	"multicam-logger/pkg/utils/ps"
)

type recordOptions struct {
	participant  string
	simulate     bool
	duration     time.Duration
	readyTimeout time.Duration
	quality      int
}

func NewRecordCmd(root *rootOptions) *cobra.Command {
	opts := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record all configured devices until interrupted",
		Long: "Starts every device, waits until all of them deliver frames, releases them together and " +
			"records until Ctrl+C (or --duration). Buffered frames are written before exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("participant") {
				cfg.Participant = opts.participant
			}
			if cmd.Flags().Changed("ready-timeout") {
				cfg.ReadyTimeout = config.Duration(opts.readyTimeout)
			}
			if cmd.Flags().Changed("quality") {
				cfg.Quality = opts.quality
			}
			if opts.simulate {
				cfg.Devices = simulated(cfg.Devices)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := utils.SignalContext(cmd.Context())
			defer cancel()
			if opts.duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			return record(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.participant, "participant", "p", config.DefaultParticipant, "participant id")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "record simulated devices instead of hardware")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 records until interrupted)")
	cmd.Flags().DurationVar(&opts.readyTimeout, "ready-timeout", 0, "give up if devices are not ready in time (0 waits forever)")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", recorder.DefaultQuality, "JPEG quality of stored images")

	return cmd
}

// simulated swaps hardware devices for synthetic ones of the same name.
func simulated(devices []config.Device) []config.Device {
	if len(devices) == 0 {
		return config.SimulatedDevices()
	}
	res := make([]config.Device, 0, len(devices))
	for _, d := range devices {
		if d.Kind == camera.KindWebcam {
			d.Kind = camera.KindSimWebcam
		}
		res = append(res, d)
	}
	return res
}

func record(ctx context.Context, cfg *config.Config, out io.Writer) error {
	stg, err := storage.New(cfg.BaseDir, cfg.Participant)
	if err != nil {
		return err
	}
	if err = stg.Init(); err != nil {
		return err
	}

	session := recorder.NewSession(cfg.SessionOptions())
	for _, d := range cfg.Devices {
		src, err := camera.Open(d.Settings(cfg.Quality))
		if err != nil {
			return err
		}
		if err = session.Register(recorder.NewDevice(src, stg, cfg.DeviceOptions(d))); err != nil {
			return err
		}
	}

	manifest := recorder.Manifest{ID: uuid.NewString(), Participant: cfg.Participant, Config: cfg}
	if cfg.NTPServer != "" {
		if offset, err := utils.ClockOffset(cfg.NTPServer); err != nil {
			logger.Warnf("query clock offset from %s err: %v", cfg.NTPServer, err)
		} else {
			logger.Infof("local clock offset %s", offset)
			manifest.ClockOffset = &offset
		}
	}
	logger.Infof("session %s: recording %d devices for %s into %s",
		manifest.ID, len(cfg.Devices), cfg.Participant, cfg.BaseDir)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go recorder.NewMonitor(session, cfg.BaseDir, cfg.MonitorInterval.Std(), cfg.HighWaterMark).Run(monitorCtx)

	runErr := session.Start(ctx)
	if runErr == nil {
		<-ctx.Done()
		logger.Infof("stopping: %v", ctx.Err())
	} else if ctx.Err() != nil {
		runErr = nil
		logger.Infof("interrupted during setup")
	} else {
		logger.Errorf("setup failed: %v", runErr)
	}

	// drain everything no matter how long it takes
	report, err := session.Shutdown(context.Background())
	if err != nil {
		return err
	}
	stopMonitor()

	manifest.Report = report
	if err = stg.DumpManifest(manifest.ID, manifest); err != nil {
		logger.Errorf("write manifest: %v", err)
	}
	printReport(out, manifest)
	if size, err := ps.DirDiskUsage(stg.BaseDir()); err == nil {
		logger.Infof("dataset size %s", humanize.Bytes(uint64(size)))
	}

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return nil
	}
	return runErr
}

func printReport(out io.Writer, m recorder.Manifest) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "session %s (%s)\n", m.ID, m.Participant)
	fmt.Fprintln(w, "DEVICE\tSTATE\tFRAMES\tIMAGES\tFAILED\tMEAN\tSTDDEV\tFPS")
	for _, d := range m.Report.Devices {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%.2f\n", d.Key, d.State, d.Frames,
			d.ImagesWritten, d.ImagesFailed, d.Rate.Mean, d.Rate.StdDev, d.Rate.FPS)
	}
	fmt.Fprintf(w, "release skew %s\n", m.Report.ReleaseSkew)
}
