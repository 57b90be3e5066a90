// Package speechkit opens Yandex SpeechKit v3 streaming recognition sessions.
package speechkit

import (
	"context"
	"eleven/app/config"
	"fmt"

	"github.com/samber/do"
	ycsdk "github.com/yandex-cloud/go-sdk"
	"github.com/yandex-cloud/go-sdk/iamkey"
)

var _ do.Shutdownable = (*YandexSpeechKit)(nil)

type YandexSpeechKit struct {
	sdk *ycsdk.SDK
}

func NewClient(di *do.Injector) (*YandexSpeechKit, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Store](di).Get()

	return New(ctx, cfg.Speech.ServiceAccountKey)
}

// New authenticates with the service account key stored at keyPath.
func New(ctx context.Context, keyPath string) (*YandexSpeechKit, error) {
	key, err := iamkey.ReadFromJSONFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key %s: %w", keyPath, err)
	}

	creds, err := ycsdk.ServiceAccountKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create service account credentials: %w", err)
	}

	sdk, err := ycsdk.Build(ctx, ycsdk.Config{
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Yandex SDK: %w", err)
	}

	return &YandexSpeechKit{sdk: sdk}, nil
}

// Start opens a recognition stream. Closing the handle cancels it.
func (y *YandexSpeechKit) Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := y.sdk.AI().STTV3().Recognizer().RecognizeStreaming(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open recognition stream: %w", err)
	}

	return &Handle{
		stream: stream,
		cancel: cancel,
	}, nil
}

func (y *YandexSpeechKit) Shutdown() error {
	return y.sdk.Shutdown(context.Background())
}
