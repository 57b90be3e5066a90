package main

import (
	"context"
	llmclient "eleven/app/client/llm"
	"eleven/app/client/osctl"
	"eleven/app/client/screen"
	"eleven/app/client/speechkit"
	"eleven/app/client/sqlite"
	"eleven/app/client/sysinfo"
	"eleven/app/config"
	"eleven/app/service/audio"
	"eleven/app/service/conversation"
	"eleven/app/service/dispatch"
	"eleven/app/service/engine"
	"eleven/app/service/folderindex"
	"eleven/app/service/intent"
	"eleven/app/service/interrupt"
	"eleven/app/service/llm"
	"eleven/app/service/mcpserver"
	"eleven/app/service/memory"
	"eleven/app/service/panel"
	"eleven/app/service/queue"
	"eleven/app/service/safety"
	"eleven/app/service/transcribe"
	"eleven/app/util/mylog"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
	gui        bool
)

var rootCmd = &cobra.Command{
	Use:   "eleven",
	Short: "Voice-controlled desktop assistant",
	Long: `ELEVEN listens for its wake phrase, understands short Spanish or English
commands and runs them on this computer: opening apps and folders, searching
the web, reporting system status and chatting through a language model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAssistant,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the folder index and exit",
	RunE:  runReindex,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve folder search, system status and command checks as MCP tools over stdio",
	RunE:  runMCP,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "optional dotenv file with API keys")
	rootCmd.Flags().BoolVar(&gui, "gui", false, "start the local settings panel")

	rootCmd.AddCommand(reindexCmd, mcpCmd)
}

func main() {
	mylog.Preinit()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("eleven failed: %v", err)
	}
}

// bootstrap loads config, sets up logging and registers every provider.
// The returned cleanup shuts the injector down and closes the log file.
func bootstrap(ctx context.Context) (*do.Injector, func(), error) {
	if err := config.LoadEnv(envPath); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}

	logFile, err := mylog.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("logging init failed: %w", err)
	}

	di := do.New()
	do.ProvideValue(di, ctx)
	do.ProvideValue(di, config.NewStore(configPath, cfg))
	do.ProvideValue(di, engine.Options{GUI: gui})

	do.Provide(di, sqlite.New)
	do.Provide(di, speechkit.NewClient)
	do.Provide(di, llmclient.New)
	do.Provide(di, osctl.New)
	do.Provide(di, screen.New)
	do.Provide(di, sysinfo.New)
	do.Provide(di, transcribe.New)
	do.Provide(di, audio.NewTranscriber)
	do.Provide(di, audio.NewSpeaker)
	do.Provide(di, audio.New)
	do.Provide(di, interrupt.New)
	do.Provide(di, memory.New)
	do.Provide(di, folderindex.New)
	do.Provide(di, safety.New)
	do.Provide(di, llm.New)
	do.Provide(di, intent.New)
	do.Provide(di, dispatch.New)
	do.Provide(di, queue.New)
	do.Provide(di, conversation.New)
	do.Provide(di, panel.New)
	do.Provide(di, mcpserver.New)
	do.Provide(di, engine.New)

	cleanup := func() {
		if err := di.Shutdown(); err != nil {
			slog.Error("Failed to shut down services", "error", err)
		}
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	return di, cleanup, nil
}

// signalContext is cancelled on the first interrupt or terminate signal.
func signalContext() (context.Context, context.CancelFunc) {
	appCtx, cancel := context.WithCancel(context.Background())

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-sig:
			log.Info("Shutting down...")
			cancel()
		case <-appCtx.Done():
		}
	}()

	return appCtx, cancel
}

func runAssistant(_ *cobra.Command, _ []string) error {
	appCtx, cancel := signalContext()
	defer cancel()

	di, cleanup, err := bootstrap(appCtx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer log.Info("Waiting for services to finish...")

	slog.Info("Service started", "config", configPath, "gui", gui)

	return do.MustInvoke[*engine.Service](di).Run(appCtx)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	appCtx, cancel := signalContext()
	defer cancel()

	di, cleanup, err := bootstrap(appCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	count, err := do.MustInvoke[*folderindex.Service](di).Rescan(appCtx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d folders\n", count)

	return nil
}

func runMCP(_ *cobra.Command, _ []string) error {
	appCtx, cancel := signalContext()
	defer cancel()

	di, cleanup, err := bootstrap(appCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	return do.MustInvoke[*mcpserver.Service](di).ServeStdio(appCtx)
}
