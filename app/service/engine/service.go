package engine

import (
	"context"
	"eleven/app/config"
	"eleven/app/service/conversation"
	"eleven/app/service/folderindex"
	"eleven/app/service/panel"
	"log/slog"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Options are the startup choices made on the command line.
type Options struct {
	GUI bool
}

type Conversation interface {
	Run(ctx context.Context) error
	SetPanelURL(url string)
}

type Indexer interface {
	RunRefreshLoop(ctx context.Context)
	Watch(ctx context.Context) error
}

type Panel interface {
	Run(ctx context.Context) error
	URL() string
}

type Service struct {
	cfg          *config.Store
	conversation Conversation
	indexer      Indexer
	panel        Panel
}

func New(di *do.Injector) (*Service, error) {
	opts := do.MustInvoke[Options](di)

	var p Panel
	if opts.GUI {
		p = do.MustInvoke[*panel.Service](di)
	}

	return NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*folderindex.Service](di),
		p,
	), nil
}

// NewService wires the background tasks. panel may be nil.
func NewService(cfg *config.Store, conv Conversation, indexer Indexer, p Panel) *Service {
	return &Service{
		cfg:          cfg,
		conversation: conv,
		indexer:      indexer,
		panel:        p,
	}
}

// Run blocks until ctx is cancelled or the conversation ends, then stops every other task.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := s.cfg.Get()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.indexer.RunRefreshLoop(ctx)
		return nil
	})

	if cfg.FolderIndex.Watch {
		group.Go(func() error {
			if err := s.indexer.Watch(ctx); err != nil {
				slog.Error("Folder watcher stopped", "error", err)
			}
			return nil
		})
	}

	if s.panel != nil {
		s.conversation.SetPanelURL(s.panel.URL())

		group.Go(func() error {
			if err := s.panel.Run(ctx); err != nil {
				slog.Error("Settings panel stopped", "error", err)
				s.conversation.SetPanelURL("")
			}
			return nil
		})
	}

	group.Go(func() error {
		defer cancel()
		return s.conversation.Run(ctx)
	})

	slog.Info("Engine started",
		"gui", s.panel != nil,
		"watch", cfg.FolderIndex.Watch)

	return group.Wait()
}
