// Command httpwatch passively observes HTTP/1.x traffic on a chosen
// network interface and prints completed request/response transactions
// as they're framed off the wire.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mccutchen/httpwatch/gnet"
	"github.com/mccutchen/httpwatch/internal/config"
	"github.com/mccutchen/httpwatch/internal/control"
	"github.com/mccutchen/httpwatch/internal/export"
	"github.com/mccutchen/httpwatch/internal/logging"
	"github.com/mccutchen/httpwatch/internal/source"
	"github.com/mccutchen/httpwatch/internal/transaction"
	"github.com/mccutchen/httpwatch/internal/ui"
	"github.com/mccutchen/httpwatch/mempool"
)

const (
	bufferPoolSize = 64 << 20 // 64MiB across all in-flight flows
	bufferChunk    = 32 << 10
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpwatch [interface]",
		Short: "Passively observe HTTP/1.x traffic on a network interface",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	loader, err := config.New(cmd.Flags())
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	cfg := loader.Current()
	if len(args) == 1 {
		cfg.Interface = args[0]
	}

	logger, flush, err := logging.New(logging.Config{FilePath: cfg.LogPath, Debug: cfg.Debug})
	if err != nil {
		return errors.Wrap(err, "configure logging")
	}
	defer flush()

	sessionID := uuid.New()
	logger = logger.With(zap.String("session_id", sessionID.String()))

	loader.Watch(func(updated config.Config) {
		logger.Info("configuration reloaded", zap.Int("idle_timeout_seconds", updated.IdleFlowTimeout))
	})

	if cfg.Interface == "" {
		devices, err := source.Devices()
		if err != nil {
			return errors.Wrap(err, "enumerate capture devices")
		}
		chosen, err := chooseInteractively(devices)
		if err != nil {
			return errors.Wrap(err, "select capture device")
		}
		cfg.Interface = chosen
	}

	bpfFilter := cfg.BPFFilter
	if bpfFilter == "" {
		bpfFilter = fmt.Sprintf("tcp port %d", cfg.Port)
	}

	pool, err := mempool.MakeBufferPool(bufferPoolSize, bufferChunk)
	if err != nil {
		return errors.Wrap(err, "allocate buffer pool")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmds := make(chan control.Command, control.CommandChannelCapacity)
	output := make(chan transaction.Transaction, control.PacketChannelCapacity)

	supervisor := control.NewSupervisor(logger, pool, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		supervisor.Run(ctx, cmds, output)
	}()

	uiTxns, exportTxns := gnet.Tee[transaction.Transaction](output)

	var exportDone chan struct{}
	if cfg.ExportPath != "" {
		exportDone = make(chan struct{})
		go func() {
			defer close(exportDone)
			runExporter(logger, cfg.ExportPath, exportTxns)
		}()
	} else {
		go drain(exportTxns)
	}

	consumerDone := make(chan struct{})
	if term.IsTerminal(int(os.Stdout.Fd())) {
		go runTUI(cmds, uiTxns, consumerDone)
	} else {
		go func() {
			defer close(consumerDone)
			ui.NewPlainPrinter(os.Stdout).Consume(uiTxns)
		}()
	}

	cmds <- control.StartCapture{
		Interface:       cfg.Interface,
		BPFFilter:       bpfFilter,
		IdleFlowTimeout: time.Duration(cfg.IdleFlowTimeout) * time.Second,
	}

	// The plain printer only returns once output is closed, so a signal must
	// also be able to start the shutdown.
	select {
	case <-consumerDone:
	case <-ctx.Done():
	}
	cancel()
	<-done
	close(output)
	if exportDone != nil {
		<-exportDone
	}
	return nil
}

func chooseInteractively(devices []pcap.Interface) (string, error) {
	return ui.ChooseDevice(devices)
}

// runTUI drives the tview consumer until the user quits, then signals
// consumerDone so the rest of the process can unwind.
func runTUI(cmds chan<- control.Command, txns <-chan transaction.Transaction, consumerDone chan<- struct{}) {
	defer close(consumerDone)
	app := ui.NewApp(cmds)
	go app.Consume(txns)
	_ = app.Run()
}

// runExporter appends every transaction's plain-text rendering to path.
func runExporter(logger *zap.Logger, path string, txns <-chan transaction.Transaction) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("failed to open export file", zap.String("path", path), zap.Error(err))
		drain(txns)
		return
	}
	defer f.Close()

	for txn := range txns {
		if err := export.WriteText(f, txn); err != nil {
			logger.Warn("failed to write export record", zap.Error(err))
		}
	}
}

func drain(txns <-chan transaction.Transaction) {
	for range txns {
	}
}
