package conversation

import (
	"context"
	"eleven/app/service/dispatch"
	"eleven/app/service/intent"
	"time"
)

type State int32

const (
	Dormant State = iota
	Active
	Speaking
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Speaking:
		return "speaking"
	default:
		return "dormant"
	}
}

type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, u intent.Utterance) intent.Intent
}

type Dispatcher interface {
	Dispatch(ctx context.Context, text string, in intent.Intent) dispatch.Result
}

type Indexer interface {
	Rescan(ctx context.Context) (int, error)
}

type Browser interface {
	OpenURL(ctx context.Context, url string) error
}
