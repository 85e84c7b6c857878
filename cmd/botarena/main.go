// BotArena - Adversarial Bot Detection Arena
// Red generates traffic against a mock storefront, blue scores it.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/botarena/botarena/internal/agent"
	"github.com/botarena/botarena/internal/arena"
	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/internal/target"
	"github.com/botarena/botarena/internal/ui"
	"github.com/botarena/botarena/internal/vcs"
	"github.com/botarena/botarena/internal/web"
	"github.com/botarena/botarena/pkg/types"
)

var (
	version = "0.1.0-dev"

	// CLI flags
	rounds        int
	basePort      int
	sessions      int
	poolSize      int
	fast          bool
	timeScale     float64
	fprLimit      float64
	noAgents      bool
	autoCommit    bool
	dashboardAddr string
	tuiMode       bool
	quiet         bool

	policyPath string
	profileDir string
	reportDir  string
	dataDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "botarena",
		Short: "BotArena - Adversarial Bot Detection Arena",
		Long: `BotArena pits an attacker (red) against a detector (blue) over a
mock e-commerce storefront.

Each round: simulated bot and human traffic hits the target, the
detector scores every request from its session history, metrics decide
a winner, and both sides may propose configuration changes that are
validated in isolation before being kept.`,
		Run: runArena,
	}

	rootCmd.Flags().IntVarP(&rounds, "rounds", "n", 1, "Number of rounds per fight")
	rootCmd.Flags().IntVar(&basePort, "base-port", 8080, "Base port for the target service")
	rootCmd.Flags().IntVarP(&sessions, "sessions", "s", 3, "Sessions per profile per round")
	rootCmd.Flags().IntVar(&poolSize, "pool", 16, "Worker pool size for traffic sessions")
	rootCmd.Flags().BoolVar(&fast, "fast", false, "Compress simulated time (x60)")
	rootCmd.Flags().Float64Var(&timeScale, "time-scale", 1, "Custom time compression divisor")
	rootCmd.Flags().Float64Var(&fprLimit, "fpr", 0.05, "Maximum tolerated false-positive rate")
	rootCmd.Flags().BoolVar(&noAgents, "no-agents", false, "Disable proposal agents")
	rootCmd.Flags().BoolVar(&autoCommit, "commit", false, "Commit accepted config changes with git")
	rootCmd.Flags().StringVar(&dashboardAddr, "dashboard", "", "Serve the web dashboard on this address (e.g. :9090)")
	rootCmd.Flags().BoolVar(&tuiMode, "tui", false, "Render the live terminal dashboard")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")

	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "configs/policy.yaml", "Detection policy file")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profiles", "configs/profiles", "Attack profile directory")
	rootCmd.PersistentFlags().StringVar(&reportDir, "reports", "reports", "Report output directory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "data", "State and history directory")

	rootCmd.AddCommand(initCmd(), serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("BotArena version %s\n", version)
		},
	}
}

// initCmd seeds the default policy and the two starter profiles.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default policy and starter profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SavePolicy(policyPath, config.DefaultPolicy()); err != nil {
				return err
			}
			bot := config.DefaultBotProfile()
			if err := config.SaveProfile(filepath.Join(profileDir, "bot.json"), bot); err != nil {
				return err
			}
			human := config.DefaultHumanProfile()
			if err := config.SaveProfile(filepath.Join(profileDir, "human.json"), human); err != nil {
				return err
			}
			fmt.Printf("wrote %s and %s/{bot,human}.json\n", policyPath, profileDir)
			return nil
		},
	}
}

// serveCmd runs the target storefront standalone, outside any fight.
func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the target storefront with detection enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(os.Stderr)
			server, err := target.NewServer(&target.ServerOptions{
				Port:        port,
				PolicyPath:  policyPath,
				CatalogSize: 500,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Listen() }()
			slog.Info("target storefront listening", slog.Int("port", port))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				return server.Shutdown()
			}
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Listen port")
	return cmd
}

func runArena(cmd *cobra.Command, args []string) {
	scale := timeScale
	if fast && scale <= 1 {
		scale = 60
	}

	conditions := types.DefaultWinConditions()
	conditions.FPRThreshold = fprLimit

	var red, blue agent.Proposer
	if !noAgents {
		red, blue = buildProposers()
	}

	var commits vcs.Client = vcs.NoopClient{}
	if autoCommit {
		commits = vcs.NewGitClient(".")
	}

	opts := arena.Options{
		Rounds:             rounds,
		BasePort:           basePort,
		SessionsPerProfile: sessions,
		PoolSize:           poolSize,
		TimeScale:          scale,
		PolicyPath:         policyPath,
		ProfileDir:         profileDir,
		StatePath:          filepath.Join(dataDir, "arena_state.json"),
		HistoryPath:        filepath.Join(dataDir, "proposal_history.json"),
		ReportDir:          reportDir,
		Conditions:         conditions,
		AutoCommit:         autoCommit,
	}

	var dash *web.Server
	var program *tea.Program

	if tuiMode {
		// The TUI owns the terminal; logs would tear it apart.
		setupLogging(io.Discard)
		board := ui.NewDashboard(sessions * 2)
		program = ui.NewProgram(board)
		opts.OnSessionDone = func(r types.SessionResult) {
			program.Send(ui.SessionDoneMsg{Result: r})
		}
	} else {
		setupLogging(os.Stderr)
	}

	// Fan events out to whichever frontends are attached. Both vars are
	// assigned before the fight starts, so the closure sees them.
	opts.Emit = func(event string, payload any) {
		if dash != nil {
			dash.HandleEvent(event, payload)
		}
		if program != nil {
			program.Send(ui.EventMsg{Event: event, Payload: payload})
		}
	}

	a, err := arena.New(opts, red, blue, commits)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if dashboardAddr != "" {
		dash = web.NewServer(a.State)
		go func() {
			if err := dash.Start(dashboardAddr); err != nil {
				slog.Error("dashboard failed", slog.String("error", err.Error()))
			}
		}()
		defer dash.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if program != nil {
		runErr := make(chan error, 1)
		go func() {
			_, err := a.Run(ctx)
			runErr <- err
			program.Quit()
		}()
		if _, err := program.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := <-runErr; err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	printBanner()
	if _, err := a.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildProposers picks the agent strategy: an LLM when credentials are
// configured, the built-in heuristic otherwise.
func buildProposers() (red, blue agent.Proposer) {
	if os.Getenv("BOTARENA_LLM_KEY") != "" {
		llm := agent.NewLLMProposer()
		return llm, llm
	}
	h := agent.HeuristicProposer{}
	return h, h
}

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║       BotArena - Bot Detection Self-Play          ║")
	fmt.Printf("║              Version: %-27s ║\n", version)
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
}
