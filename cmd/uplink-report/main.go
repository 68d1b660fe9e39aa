package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/recovery"
	"github.com/mongodb/grip/send"
	"github.com/mongodb/uplink"
	"github.com/mongodb/uplink/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type localPlatform struct {
	name    string
	version string
	units   int
	online  bool
}

func (p *localPlatform) Name() string              { return p.name }
func (p *localPlatform) Version() string           { return p.version }
func (p *localPlatform) OnlineMode() bool          { return p.online }
func (p *localPlatform) ActiveUnits() (int, error) { return p.units, nil }

type localComponent struct {
	name    string
	version string
}

func (c *localComponent) Name() string    { return c.name }
func (c *localComponent) Version() string { return c.version }
func (c *localComponent) Active() bool    { return true }

type reportFlags struct {
	dataRoot  string
	component localComponent
	platform  localPlatform
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataRoot, "data-root", "plugins", "directory holding the shared settings directory")
	cmd.Flags().StringVar(&f.component.name, "name", "uplink-report", "component name to report")
	cmd.Flags().StringVar(&f.component.version, "version", "dev", "component version to report")
	cmd.Flags().StringVar(&f.platform.name, "platform", "uplink", "platform name to report")
	cmd.Flags().StringVar(&f.platform.version, "platform-version", runtime.Version(), "platform version to report")
	cmd.Flags().IntVar(&f.platform.units, "units", 0, "active unit count to report")
	cmd.Flags().BoolVar(&f.platform.online, "online", true, "report online mode")
}

// build assembles a report for a single local component. The instance
// uses its own registry so that the scheduler it starts is isolated
// and stopped before returning.
func (f *reportFlags) build(ctx context.Context) ([]byte, error) {
	m, err := uplink.New(&f.component, uplink.Options{
		ConfigPath: config.DefaultPath(f.dataRoot),
		Platform:   &f.platform,
		Executor:   uplink.NewLoopExecutor(ctx, 1),
		Registry:   uplink.NewRegistry(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "problem constructing uplink")
	}
	defer m.Close()

	catcher := grip.NewBasicCatcher()
	catcher.Add(m.AddChart(uplink.NewSimplePie("goVersion", func() (string, error) { return runtime.Version(), nil })))
	catcher.Add(m.AddChart(uplink.NewSingleLineChart("goroutines", func() (int, error) { return runtime.NumGoroutine(), nil })))
	catcher.Add(m.AddChart(uplink.NewAdvancedPie("platform", func() (map[string]int, error) {
		return map[string]int{runtime.GOOS + "/" + runtime.GOARCH: 1}, nil
	})))
	if catcher.HasErrors() {
		return nil, errors.Wrap(catcher.Resolve(), "problem registering charts")
	}

	if !m.Enabled() {
		grip.Warningf("submissions are disabled in '%s'", config.DefaultPath(f.dataRoot))
	}

	payload, err := m.Report().MarshalJSON()
	return payload, errors.Wrap(err, "problem rendering report")
}

func printJSON(payload []byte) error {
	out := &bytes.Buffer{}
	if err := json.Indent(out, payload, "", "  "); err != nil {
		return errors.Wrap(err, "problem formatting report")
	}
	_, err := fmt.Fprintln(os.Stdout, out.String())
	return errors.WithStack(err)
}

func previewCommand() *cobra.Command {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "print the report that would be submitted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := flags.build(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
	flags.register(cmd)
	return cmd
}

func sendCommand() *cobra.Command {
	flags := &reportFlags{}
	var endpoint string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "submit one report immediately",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := uplink.New(&flags.component, uplink.Options{
				ConfigPath: config.DefaultPath(flags.dataRoot),
				Platform:   &flags.platform,
				Executor:   uplink.NewLoopExecutor(cmd.Context(), 1),
				Registry:   uplink.NewRegistry(),
			})
			if err != nil {
				return errors.Wrap(err, "problem constructing uplink")
			}
			defer m.Close()

			if !m.Enabled() {
				return errors.Errorf("submissions are disabled in '%s'", config.DefaultPath(flags.dataRoot))
			}

			transport := uplink.NewTransport(uplink.TransportOptions{
				Endpoint:              endpoint,
				LogSentData:           true,
				LogResponseStatusText: true,
			})

			return transport.Send(cmd.Context(), m.Report())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&endpoint, "endpoint", uplink.DefaultEndpoint, "collection endpoint")
	return cmd
}

func decodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE",
		Short: "decompress and print a captured request body",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "problem reading '%s'", args[0])
			}

			payload, err := uplink.Decompress(data)
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
}

func signalListener(ctx context.Context, trigger context.CancelFunc) {
	defer recovery.LogStackTraceAndContinue("graceful shutdown")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, os.Interrupt)

	select {
	case <-sigChan:
		trigger()
	case <-ctx.Done():
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = grip.GetSender().SetLevel(send.LevelInfo{Default: level.Info, Threshold: level.Info})

	go signalListener(ctx, cancel)

	root := &cobra.Command{
		Use:           "uplink-report",
		Short:         "inspect and submit usage reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(previewCommand(), sendCommand(), decodeCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		grip.EmergencyFatal(err)
	}
}
