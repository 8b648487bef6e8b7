package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"pagemotion/internal/storage"
)

func newGDriveAuthCommand() *cobra.Command {
	var (
		clientID     string
		clientSecret string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:         "gdrive-auth",
		Short:       "Obtain a Google Drive refresh token for the gdrive storage provider",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			clientID = strings.TrimSpace(clientID)
			clientSecret = strings.TrimSpace(clientSecret)
			if clientID == "" || clientSecret == "" {
				return errors.New("client id and secret are required (--client-id/--client-secret or GDRIVE_CLIENT_ID/GDRIVE_CLIENT_SECRET)")
			}
			return runGDriveAuth(ctx, cmd.OutOrStdout(), clientID, clientSecret, timeout)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", os.Getenv("GDRIVE_CLIENT_ID"), "OAuth client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", os.Getenv("GDRIVE_CLIENT_SECRET"), "OAuth client secret")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "How long to wait for the browser callback")
	return cmd
}

func runGDriveAuth(ctx context.Context, out io.Writer, clientID, clientSecret string, timeout time.Duration) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	conf := storage.OAuthConfig(clientID, clientSecret, redirectURL)

	state, err := randomState()
	if err != nil {
		return err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code, err := callbackCode(r, state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			select {
			case errCh <- err:
			default:
			}
			return
		}
		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	// offline access plus forced consent so a refresh token is issued
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Fprintln(out, "\nOpen this URL in your browser:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "\nWaiting for authorization on", redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return errors.New("timed out waiting for authorization")
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Fprintln(out, "\nNo refresh_token was returned.")
		fmt.Fprintln(out, "Revoke the app's previous access in your Google Account and run this command again:")
		fmt.Fprintln(out, "https://myaccount.google.com/permissions")
		return errors.New("no refresh token issued")
	}

	fmt.Fprintln(out, "\nREFRESH TOKEN (set as GDRIVE_REFRESH_TOKEN):")
	fmt.Fprintln(out, tok.RefreshToken)
	return nil
}

func callbackCode(r *http.Request, state string) (string, error) {
	q := r.URL.Query()
	if q.Get("state") != state {
		return "", errors.New("invalid state")
	}
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("auth error: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("missing code")
	}
	return code, nil
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
