package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmnkit/vietnamese-word-cards/internal/config"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

type rootOptions struct {
	cfg       config.Config
	remoteURL string
	userID    string
	localDB   string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "vietcards",
		Short:         "Track Vietnamese vocabulary progress and sync it with the backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("remote") {
				opts.cfg.RemoteURL = opts.remoteURL
			}
			if cmd.Flags().Changed("user") {
				opts.cfg.UserID = opts.userID
			}
			if cmd.Flags().Changed("local-db") {
				opts.cfg.LocalDBPath = opts.localDB
			}
			if cmd.Flags().Changed("log-level") {
				opts.cfg.LogLevel = opts.logLevel
			}
			logger.SetDefault(logger.New(
				logger.WithOutput(os.Stderr),
				logger.WithLevel(logger.ParseLevel(opts.cfg.LogLevel)),
			))
			return opts.cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.remoteURL, "remote", opts.cfg.RemoteURL, "progress backend base URL")
	pf.StringVar(&opts.userID, "user", opts.cfg.UserID, "user identity sent to the backend")
	pf.StringVar(&opts.localDB, "local-db", opts.cfg.LocalDBPath, "local progress database")
	pf.StringVar(&opts.logLevel, "log-level", opts.cfg.LogLevel, "DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		readCmd(opts, "status", "Show the full progress record", func(a *app) any {
			return a.store.Snapshot()
		}),
		readCmd(opts, "stats", "Show aggregate statistics", func(a *app) any {
			return a.store.Stats()
		}),
		readCmd(opts, "level", "Show progress towards the next level", func(a *app) any {
			return a.store.LevelProgress()
		}),
		learnCmd(opts),
		forgetCmd(opts),
		xpCmd(opts),
		streakCmd(opts),
		sessionCmd(opts),
		resetCmd(opts),
		syncCmd(opts),
		connectivityCmd(opts, "online", true),
		connectivityCmd(opts, "offline", false),
		watchCmd(opts),
	)
	return root
}

// run opens the engine, runs fn and closes the engine again.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) (any, error)) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	out, err := fn(ctx, a)
	a.close()
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func readCmd(o *rootOptions, use, short string, read func(a *app) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(_ context.Context, a *app) (any, error) {
				return read(a), nil
			})
		},
	}
}

type wordResult struct {
	WordID  string `json:"wordId"`
	Learned bool   `json:"learned"`
	Total   int    `json:"totalWordsLearned"`
}

func learnCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "learn <word-id>",
		Short: "Mark a word as learned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.store.AddLearnedWord(ctx, args[0]); err != nil {
					return nil, err
				}
				return wordResult{args[0], a.store.IsWordLearned(args[0]), len(a.store.Snapshot().LearnedWords)}, nil
			})
		},
	}
}

func forgetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <word-id>",
		Short: "Remove a word from the learned set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.store.RemoveLearnedWord(ctx, args[0]); err != nil {
					return nil, err
				}
				return wordResult{args[0], a.store.IsWordLearned(args[0]), len(a.store.Snapshot().LearnedWords)}, nil
			})
		},
	}
}

func xpCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "xp <points>",
		Short: "Award experience points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("points must be an integer: %w", err)
			}
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.store.AddExperiencePoints(ctx, points); err != nil {
					return nil, err
				}
				return a.store.LevelProgress(), nil
			})
		},
	}
}

type streakResult struct {
	Action        string `json:"action"`
	StreakDays    int    `json:"streakDays"`
	LastStudyDate string `json:"lastStudyDate"`
}

func streakCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Record today's study for the daily streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				d, err := a.store.UpdateStreak(ctx)
				if err != nil {
					return nil, err
				}
				return streakResult{d.Action.String(), d.StreakDays, d.LastStudyDate}, nil
			})
		},
	}
}

func sessionCmd(o *rootOptions) *cobra.Command {
	var (
		activity string
		ns       models.NewStudySession
		score    int
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record a completed study session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns.ActivityType = models.ActivityType(activity)
			if cmd.Flags().Changed("score") {
				ns.QuizScore = &score
			}
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				return a.store.AddStudySession(ctx, ns)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&activity, "type", string(models.ActivityFlashcard), "flashcard, quiz or learning")
	f.IntVar(&ns.DurationMinutes, "duration", 0, "duration in minutes")
	f.IntVar(&ns.WordsPracticed, "words", 0, "words practiced")
	f.IntVar(&ns.XPEarned, "xp", 0, "XP earned during the session")
	f.IntVar(&ns.WordsLearned, "learned", 0, "words learned during the session")
	f.IntVar(&score, "score", 0, "quiz score")
	return cmd
}

func resetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all progress to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.store.ResetProgress(ctx); err != nil {
					return nil, err
				}
				return a.store.Snapshot(), nil
			})
		},
	}
}

type syncResult struct {
	SyncStatus   models.SyncStatus `json:"syncStatus"`
	LastSyncTime *time.Time        `json:"lastSyncTime"`
}

func syncState(a *app) syncResult {
	return syncResult{SyncStatus: a.store.SyncStatus(), LastSyncTime: a.store.LastSyncTime()}
}

func syncCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local progress and pull the backend's canonical copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.sync.SyncWithBackend(ctx); err != nil {
					return nil, err
				}
				return syncState(a), nil
			})
		},
	}
}

func connectivityCmd(o *rootOptions, use string, online bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Mark the device %s", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.sync.OnConnectivityChange(ctx, online); err != nil {
					return nil, err
				}
				return syncState(a), nil
			})
		},
	}
}

func watchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return o.run(cmd, func(ctx context.Context, a *app) (any, error) {
				if err := a.sync.SyncWithBackend(ctx); err != nil {
					a.log.Warn("initial sync failed: %v", err)
				}
				if err := a.sync.Start(ctx); err != nil {
					return nil, err
				}
				<-ctx.Done()
				a.log.Info("stopping auto-sync")
				return syncState(a), nil
			})
		},
	}
}
