// Package commands wires the note engine into a cobra CLI. Every
// subcommand works against the same app bundle: durable store, session,
// note registry, search index, sync engine and autosave controller.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/cli/api"
	"github.com/kavinsood/kite/internal/cli/autosave"
	"github.com/kavinsood/kite/internal/cli/index"
	"github.com/kavinsood/kite/internal/cli/model"
	"github.com/kavinsood/kite/internal/cli/registry"
	"github.com/kavinsood/kite/internal/cli/session"
	"github.com/kavinsood/kite/internal/cli/store"
	"github.com/kavinsood/kite/internal/cli/syncer"
	"github.com/kavinsood/kite/internal/config"
)

type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	store  *store.Store
	sess   *session.Session
	reg    *registry.Registry
	index  *index.Index
	syncer *syncer.Syncer
	save   *autosave.Controller
}

var (
	buildVersion = "dev"

	flagDataDir string
	flagBaseURL string
	flagHTTPS   bool
	flagVerbose bool
)

// Execute runs the CLI. version is stamped at build time.
func Execute(version string) error {
	if version != "" {
		buildVersion = version
	}
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "kite",
		Short:         "kite is a local-first markdown note keeper",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a == nil {
				return
			}
			a.save.FlushAll()
			a.index.WaitForHydration()
			if err := a.store.Close(); err != nil {
				a.logger.Warnw("close store", "error", err)
			}
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for the local note database and session file")
	root.PersistentFlags().StringVar(&flagBaseURL, "server", "", "note store address (host:port)")
	root.PersistentFlags().BoolVar(&flagHTTPS, "https", false, "use https when talking to the note store")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log internal activity")

	root.AddCommand(
		newListCmd(),
		newNewCmd(),
		newShowCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newSearchCmd(),
		newSyncCmd(),
		newStatusCmd(),
		newPinCmd(),
		newUnpinCmd(),
		newExportCmd(),
		newTUICmd(),
	)
	return root
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.NewClientConfig()
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagHTTPS {
		cfg.EnableHTTPS = true
	}
	cfg.ApplyDefaults()

	logger := zap.NewNop().Sugar()
	if flagVerbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l.Sugar()
	}

	st, dbPath, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open note database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate note database: %w", err)
	}
	logger.Debugw("store open", "path", dbPath)

	sess, err := session.Load(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	reg := registry.New(st, sess, logger)
	if sess.Synced() {
		reg.SetRemote(api.New(cfg.ServerURL, sess.BucketID()))
	}
	if err := reg.Load(ctx); err != nil {
		// the server being down must not brick the CLI; fall back to
		// the local copy
		logger.Warnw("load notes from server failed, using local copy", "error", err)
		reg.SetRemote(nil)
		if err := reg.Load(ctx); err != nil {
			return nil, fmt.Errorf("load notes: %w", err)
		}
	}

	ix := index.New(st, logger)
	ix.Reconcile(reg.Notes())

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		sess:   sess,
		reg:    reg,
		index:  ix,
		syncer: syncer.New(st, sess, reg, cfg.ServerURL, logger),
	}
	a.save = autosave.New(st, reg, ix, logger)
	return a, nil
}

// resolveID expands an id prefix to the full note id. Ambiguous or
// unknown prefixes are errors listing nothing sensitive.
func (a *app) resolveID(prefix string) (model.Note, error) {
	if prefix == "" {
		return model.Note{}, fmt.Errorf("empty note id")
	}
	var found []model.Note
	for _, n := range a.reg.Notes() {
		if n.ID == prefix {
			return n, nil
		}
		if strings.HasPrefix(n.ID, prefix) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return model.Note{}, fmt.Errorf("no note matches %q", prefix)
	default:
		return model.Note{}, fmt.Errorf("%d notes match %q, be more specific", len(found), prefix)
	}
}

// bestContent returns the content a user expects to see: draft first,
// then the committed copy, then the server copy when synced.
func (a *app) bestContent(ctx context.Context, id string) (string, error) {
	if draft, ok, err := a.store.GetDraft(ctx, id); err == nil && ok {
		return draft, nil
	}
	if note, ok, err := a.store.GetNote(ctx, id); err == nil && ok {
		return note, nil
	}
	if a.sess.Synced() {
		client := api.New(a.cfg.ServerURL, a.sess.BucketID())
		full, err := client.GetNote(ctx, id)
		if err != nil {
			return "", err
		}
		return full.Content, nil
	}
	return "", nil
}
