package gmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/lu-zhengda/sendersweep/internal/store"
)

// No credentials are embedded in the binary. Users supply their own Google
// Cloud OAuth client via one of:
//   - Config file (~/.config/sendersweep/config.toml) under [gmail]
//   - Environment variables GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET
//   - A downloaded client secret JSON referenced by gmail.credentials_file

// ErrNoCredentials is returned when no OAuth client is configured.
var ErrNoCredentials = errors.New("gmail OAuth credentials not configured; set them in ~/.config/sendersweep/config.toml under [gmail] or via GMAIL_CLIENT_ID / GMAIL_CLIENT_SECRET env vars")

// scopes grants read access to headers and label changes for trashing.
var scopes = []string{gmailapi.GmailModifyScope}

// Credentials identify the OAuth client.
type Credentials struct {
	ClientID     string
	ClientSecret string
	File         string
}

// OAuthConfig builds the oauth2 client configuration, preferring the
// credentials file when one is set.
func (c Credentials) OAuthConfig() (*oauth2.Config, error) {
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		cfg, err := google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		return cfg, nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// Authenticator obtains and persists tokens for one account.
type Authenticator struct {
	config  *oauth2.Config
	tokens  store.TokenStore
	account string
	out     io.Writer
	log     *zap.Logger
}

// NewAuthenticator validates creds and returns an Authenticator. The
// authorization URL is printed to out when the browser flow is needed.
func NewAuthenticator(creds Credentials, tokens store.TokenStore, account string, out io.Writer, log *zap.Logger) (*Authenticator, error) {
	cfg, err := creds.OAuthConfig()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{config: cfg, tokens: tokens, account: account, out: out, log: log}, nil
}

// Token returns the saved token, running the browser flow when none exists.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.tokens.LoadToken(a.account)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, store.ErrNoToken) {
		return nil, err
	}
	return a.Login(ctx)
}

// Login always runs the browser flow and saves the resulting token.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate gmail: %w", err)
	}
	if err := a.tokens.SaveToken(a.account, token); err != nil {
		return nil, fmt.Errorf("failed to save gmail token: %w", err)
	}
	a.log.Info("saved gmail token", zap.String("account", a.account))
	return token, nil
}

// Logout forgets the account's token.
func (a *Authenticator) Logout() error {
	return a.tokens.DeleteToken(a.account)
}

// Service returns an authorized Gmail client. Refreshed tokens are written
// back to the token store.
func (a *Authenticator) Service(ctx context.Context) (*gmailapi.Service, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	src := &savingTokenSource{
		base: a.config.TokenSource(ctx, token),
		last: token.AccessToken,
		save: func(t *oauth2.Token) error { return a.tokens.SaveToken(a.account, t) },
		log:  a.log,
	}
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(token, src)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return srv, nil
}

type savingTokenSource struct {
	base oauth2.TokenSource
	last string
	save func(*oauth2.Token) error
	log  *zap.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if t.AccessToken != s.last {
		s.last = t.AccessToken
		if err := s.save(t); err != nil {
			s.log.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}
	return t, nil
}

func (a *Authenticator) authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	cfg := *a.config
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			select {
			case errCh <- fmt.Errorf("no code in callback: %s", r.URL.Query().Get("error")):
			default:
			}
			fmt.Fprint(w, "Authentication failed. You can close this tab.")
			return
		}
		select {
		case codeCh <- code:
		default:
		}
		fmt.Fprint(w, "Authentication successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Shutdown(context.Background())

	url := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(a.out, "\nOpen this URL in your browser to authorize sendersweep:\n\n  %s\n\nWaiting for authorization...\n", url)

	select {
	case code := <-codeCh:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
