package cli

import (
	"context"
	"io"
	"sync"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/provider"
	"github.com/lu-zhengda/sendersweep/internal/provider/gmail"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

func (e *env) authenticator(out io.Writer) (*gmail.Authenticator, error) {
	creds := gmail.Credentials{
		ClientID:     e.cfg.Gmail.ClientID,
		ClientSecret: e.cfg.Gmail.ClientSecret,
		File:         e.cfg.Gmail.CredentialsFile,
	}
	return gmail.NewAuthenticator(creds, store.NewKeyringTokenStore(), e.cfg.Gmail.Account, out, e.log)
}

// gmailProvider authorizes and returns a Gmail provider tuned by the
// [scan] and [retry] config sections.
func (e *env) gmailProvider(ctx context.Context, out io.Writer) (*gmail.Provider, error) {
	auth, err := e.authenticator(out)
	if err != nil {
		return nil, err
	}
	srv, err := auth.Service(ctx)
	if err != nil {
		return nil, err
	}
	return gmail.New(srv, gmail.Options{
		PageSize:          e.cfg.Scan.PageSize,
		FetchBatchSize:    e.cfg.Scan.FetchBatchSize,
		RequestsPerSecond: e.cfg.Scan.RequestsPerSecond,
		Retry: gmail.RetryConfig{
			MaxAttempts:     e.cfg.Retry.MaxAttempts,
			InitialInterval: e.cfg.Retry.InitialInterval.Duration,
			MaxInterval:     e.cfg.Retry.MaxInterval.Duration,
		},
		Logger: e.log.Named("gmail"),
	}), nil
}

// lazyProvider defers authorization until the first API call, so commands
// served from the cache never open a browser.
type lazyProvider struct {
	connect func(ctx context.Context) (provider.MailProvider, error)

	once sync.Once
	p    provider.MailProvider
	err  error
}

func (l *lazyProvider) get(ctx context.Context) (provider.MailProvider, error) {
	l.once.Do(func() {
		l.p, l.err = l.connect(ctx)
	})
	return l.p, l.err
}

func (l *lazyProvider) ListMessageIDs(ctx context.Context, opts provider.ListOptions) ([]string, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return p.ListMessageIDs(ctx, opts)
}

func (l *lazyProvider) FetchMetadata(ctx context.Context, ids []string, progress provider.ProgressFunc) ([]domain.MessageMeta, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return p.FetchMetadata(ctx, ids, progress)
}

func (l *lazyProvider) TrashBatch(ctx context.Context, ids []string) (int, error) {
	p, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return p.TrashBatch(ctx, ids)
}

func (l *lazyProvider) Profile(ctx context.Context) (string, error) {
	p, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return p.Profile(ctx)
}

func (e *env) lazyProvider(out io.Writer) *lazyProvider {
	return &lazyProvider{connect: func(ctx context.Context) (provider.MailProvider, error) {
		return e.gmailProvider(ctx, out)
	}}
}
