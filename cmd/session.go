// cmd/session.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/config"
	"github.com/xkilldash9x/scrolllab/internal/observability"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
	"github.com/xkilldash9x/scrolllab/internal/session"
	"github.com/xkilldash9x/scrolllab/internal/store"
)

// now is replaced in tests.
var now = time.Now

// stepView is a plan step with its progress.
type stepView struct {
	Index     int               `json:"index"`
	Doc       schemas.DocLetter `json:"doc"`
	Technique scroll.Technique  `json:"technique"`
	Content   string            `json:"content"`
	Unlocked  bool              `json:"unlocked"`
	Active    bool              `json:"active"`
	Done      bool              `json:"done"`
	TS        string            `json:"ts,omitempty"`
}

type sessionView struct {
	Code          string     `json:"code"`
	PartIOrder    string     `json:"partIOrder,omitempty"`
	PartIIPattern string     `json:"partIIPattern,omitempty"`
	Steps         []stepView `json:"steps,omitempty"`
	Action        string     `json:"action,omitempty"`
	Finished      bool       `json:"finished"`
}

func newSessionCmd(stores storeProvider) *cobra.Command {
	var apiBase string
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run Part I of a reading study session",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Cobra runs only the nearest PersistentPreRunE, so chain to the root's.
			if root := cmd.Root(); root.PersistentPreRunE != nil {
				if err := root.PersistentPreRunE(cmd, args); err != nil {
					return err
				}
			}
			if apiBase != "" {
				cfg, err := getConfigFromContext(cmd.Context())
				if err != nil {
					return err
				}
				cfg.SetSessionAPIBase(apiBase)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "Session API base URL (default: session.api_base).")

	cmd.AddCommand(newSessionStartCmd(stores))
	cmd.AddCommand(newSessionHeartbeatCmd())
	cmd.AddCommand(newSessionPlanCmd(stores))
	cmd.AddCommand(newSessionPickCmd(stores))
	cmd.AddCommand(newSessionCompleteCmd(stores))
	cmd.AddCommand(newSessionRunCmd(stores))
	return cmd
}

func newSessionClient(cfg config.Interface) (*session.Client, error) {
	sc := cfg.Session()
	return session.NewClient(session.Config{
		APIBase:        sc.APIBase,
		RequestTimeout: sc.RequestTimeout,
		RateLimit:      sc.RateLimit,
		RateBurst:      sc.RateBurst,
	}, observability.GetLogger())
}

func newSessionStartCmd(stores storeProvider) *cobra.Command {
	var twoStep bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a session and assign its document order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			client, err := newSessionClient(cfg)
			if err != nil {
				return err
			}

			view := sessionView{}
			if twoStep {
				created, err := client.Create(ctx)
				if err != nil {
					return fmt.Errorf("failed to create session: %w", err)
				}
				assigned, err := client.AssignOrders(ctx, created.SessionCode)
				if err != nil {
					return fmt.Errorf("failed to assign orders: %w", err)
				}
				view.Code = created.SessionCode
				if assigned.PartIOrder != nil {
					view.PartIOrder = string(*assigned.PartIOrder)
				}
				if assigned.PartIIPattern != nil {
					view.PartIIPattern = *assigned.PartIIPattern
				}
			} else {
				started, err := client.StartAtomic(ctx)
				if err != nil {
					return fmt.Errorf("failed to start session: %w", err)
				}
				view.Code = started.Code
				view.PartIOrder = started.PartIOrder
				view.PartIIPattern = started.PartIIPattern
			}

			prefs, closeStore, err := stores.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open preference store: %w", err)
			}
			defer closeStore()
			progress, err := loadProgress(ctx, prefs, view.Code)
			if err != nil {
				return err
			}
			if err := prefs.SaveProgress(ctx, view.Code, progress.State()); err != nil {
				return fmt.Errorf("failed to save progress: %w", err)
			}

			observability.GetLogger().Info("Session started.", zap.String("code", view.Code), zap.String("order", view.PartIOrder))
			if err := fillSteps(&view, schemas.PartIOrder(view.PartIOrder), progress); err != nil {
				// The service may assign orders later; the session itself is valid.
				observability.GetLogger().Warn("Session has no usable Part I order yet.", zap.Error(err))
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().BoolVar(&twoStep, "two-step", false, "Use POST /sessions followed by assign-orders instead of /sessions/start.")
	return cmd
}

func newSessionHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat CODE",
		Short: "Send one heartbeat for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			client, err := newSessionClient(cfg)
			if err != nil {
				return err
			}
			if err := client.Heartbeat(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("heartbeat failed: %w", err)
			}
			cmd.Printf("Heartbeat sent for %s.\n", args[0])
			return nil
		},
	}
}

// progressCommand wires the commands that read and update stored progress.
func progressCommand(stores storeProvider, use, short string, args cobra.PositionalArgs,
	apply func(cmd *cobra.Command, args []string, p *session.Progress) error) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			prefs, closeStore, err := stores.Create(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open preference store: %w", err)
			}
			defer closeStore()

			code := args[0]
			progress, err := loadProgress(ctx, prefs, code)
			if err != nil {
				return err
			}
			if apply != nil {
				if err := apply(cmd, args, progress); err != nil {
					return err
				}
				if err := prefs.SaveProgress(ctx, code, progress.State()); err != nil {
					return fmt.Errorf("failed to save progress: %w", err)
				}
			}

			view := sessionView{Code: code, PartIOrder: order}
			if order != "" {
				if err := fillSteps(&view, schemas.PartIOrder(order), progress); err != nil {
					return err
				}
			} else {
				view.Action = progress.ActionLabel()
				view.Finished = progress.Finished()
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVar(&order, "order", "", "Part I document order (e.g. BCA) to show the step plan.")
	return cmd
}

func newSessionPlanCmd(stores storeProvider) *cobra.Command {
	return progressCommand(stores, "plan CODE", "Show the step plan and progress of a session", cobra.ExactArgs(1), nil)
}

func newSessionPickCmd(stores storeProvider) *cobra.Command {
	return progressCommand(stores, "pick CODE STEP", "Make an unlocked step the active one", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string, p *session.Progress) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step %q: %w", args[1], err)
			}
			if !p.Pick(idx) {
				return fmt.Errorf("step %d is locked", idx)
			}
			return nil
		})
}

func newSessionCompleteCmd(stores storeProvider) *cobra.Command {
	return progressCommand(stores, "complete CODE", "Mark the active step of a session done", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string, p *session.Progress) error {
			if !p.CompleteCurrent(now()) {
				cmd.PrintErrf("Step %d is already done.\n", p.Active())
			}
			return nil
		})
}

func newSessionRunCmd(stores storeProvider) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "run CODE",
		Short: "Walk through the steps of a session while keeping it alive",
		Long: `Prints the active step and waits for input. An empty line (or "done")
completes the active step, a step number switches to that step if it is
unlocked, and "q" quits. Heartbeats are sent in the background until every
step is done or the command stops.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, args[0], order, stores)
		},
	}
	cmd.Flags().StringVar(&order, "order", "", "Part I document order. Fetched from the service when empty.")
	return cmd
}

func runSession(cmd *cobra.Command, code, order string, stores storeProvider) error {
	ctx := cmd.Context()
	logger := observability.GetLogger().Named("session")
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	client, err := newSessionClient(cfg)
	if err != nil {
		return err
	}

	if order == "" {
		s, err := client.AssignOrders(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to fetch session orders: %w", err)
		}
		if s.PartIOrder == nil {
			return fmt.Errorf("session %s has no Part I order yet", code)
		}
		order = string(*s.PartIOrder)
	}
	plan, err := session.BuildPlan(schemas.PartIOrder(order))
	if err != nil {
		return err
	}

	prefs, closeStore, err := stores.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer closeStore()
	progress, err := loadProgress(ctx, prefs, code)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		session.KeepAlive(gctx, client, code, cfg.Session().HeartbeatInterval, logger)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return stepLoop(gctx, cmd, readLines(gctx, cmd.InOrStdin()), plan, progress, func() error {
			return prefs.SaveProgress(ctx, code, progress.State())
		})
	})
	return g.Wait()
}

// stepLoop applies input lines to progress until every step is done, the
// input ends or ctx is done.
func stepLoop(ctx context.Context, cmd *cobra.Command, lines <-chan string, plan []session.Step, progress *session.Progress, save func() error) error {
	out := cmd.OutOrStdout()
	for {
		if progress.Finished() {
			fmt.Fprintln(out, "All steps complete.")
			return nil
		}
		promptStep(out, plan, progress)

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "q", "quit", "exit":
			return nil
		case "", "done", "next":
			if !progress.CompleteCurrent(now()) {
				fmt.Fprintf(out, "Step %d is already done.\n", progress.Active())
				continue
			}
		default:
			idx, err := strconv.Atoi(line)
			if err != nil || !progress.Pick(idx) {
				fmt.Fprintf(out, "Cannot select %q.\n", line)
				continue
			}
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
	}
}

func promptStep(w io.Writer, plan []session.Step, progress *session.Progress) {
	step := plan[progress.Active()-1]
	fmt.Fprintf(w, "Step %d: document %s (%s) with technique %s [%s]> ",
		step.Index, step.Doc, step.Content, step.Technique, progress.ActionLabel())
}

// readLines forwards lines from r until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func loadProgress(ctx context.Context, prefs *store.Preferences, code string) (*session.Progress, error) {
	saved, found, err := prefs.LoadProgress(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if !found {
		return session.NewProgress(), nil
	}
	return session.RestoreProgress(saved), nil
}

func fillSteps(view *sessionView, order schemas.PartIOrder, progress *session.Progress) error {
	plan, err := session.BuildPlan(order)
	if err != nil {
		return err
	}
	state := progress.State()
	for _, s := range plan {
		st := state.Steps[s.Index]
		view.Steps = append(view.Steps, stepView{
			Index:     s.Index,
			Doc:       s.Doc,
			Technique: s.Technique,
			Content:   s.Content,
			Unlocked:  progress.CanSelect(s.Index),
			Active:    progress.Active() == s.Index,
			Done:      st.Done,
			TS:        st.TS,
		})
	}
	view.Action = progress.ActionLabel()
	view.Finished = progress.Finished()
	return nil
}
