package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/config"
	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/credentials"
	"github.com/jessevdk/go-flags"
)

// defaultClientConfig is used when no config file is given
var defaultClientConfig = config.ClientConfig{
	RequestTimeout:       30 * time.Second,
	RefreshTimeout:       10 * time.Second,
	UnauthorizedStatus:   http.StatusUnauthorized,
	RefreshTokenRotation: config.RotationAuto,
	Exchange: config.ExchangeConfig{
		Type:         config.ExchangeTypeJSON,
		LoginPath:    "/auth/login",
		RegisterPath: "/auth/register",
		RefreshPath:  "/auth/refresh",
	},
}

type app struct {
	Options
	out    io.Writer
	errOut io.Writer
	client *authclient.Client
}

func run(args []string, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	parser := flags.NewParser(&a.Options, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "plantctl"
	commands := []struct {
		name, short string
		data        any
	}{
		{"login", "log in and keep the credentials", &loginCommand{app: a}},
		{"register", "create an account", &registerCommand{app: a}},
		{"logout", "forget the credentials", &logoutCommand{app: a}},
		{"status", "show whether credentials are kept and until when the access token is valid", &statusCommand{app: a}},
		{"get", "send an authenticated GET request", &getCommand{app: a}},
		{"post", "send an authenticated POST request with a JSON body", &postCommand{app: a}},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, "", cmd.data); err != nil {
			return err
		}
	}
	_, err := parser.ParseArgs(args)
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		fmt.Fprintln(out, flagsErr.Message)
		return nil
	}
	return err
}

// setup builds the authenticated client, it is called by the commands once the flags are parsed
func (a *app) setup() error {
	level := slog.LevelWarn
	if a.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level})))

	backendURL, clientConfig, err := a.backend()
	if err != nil {
		return err
	}
	credentialsPath := a.Credentials
	if credentialsPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		credentialsPath = filepath.Join(configDir, "plantctl", "credentials.json")
	}
	store, err := credentials.NewFileStore(credentialsPath)
	if err != nil {
		return err
	}
	a.client, err = authclient.NewClient(
		authclient.WithStore(store),
		authclient.WithConfig(backendURL, clientConfig),
		authclient.WithTerminator(authclient.NewSessionTerminator(store, func(ctx context.Context, cause error) {
			fmt.Fprintln(a.errOut, "your session has ended, log in again with: plantctl login -u USER -p PASSWORD")
		})),
	)
	return err
}

func (a *app) backend() (*url.URL, config.ClientConfig, error) {
	clientConfig := defaultClientConfig
	var backendURL *url.URL
	if a.Config != "" {
		fileConfig, err := config.NewConfigHandlerForFile(a.Config).Config()
		if err != nil {
			return nil, config.ClientConfig{}, err
		}
		if err := fileConfig.Client.Validate(); err != nil {
			return nil, config.ClientConfig{}, err
		}
		clientConfig = fileConfig.Client
		backendURL = fileConfig.Backend.URL
	}
	if a.Backend != "" {
		parsed, err := url.Parse(a.Backend)
		if err != nil {
			return nil, config.ClientConfig{}, fmt.Errorf("invalid backend url: %w", err)
		}
		backendURL = parsed
	}
	if backendURL == nil || backendURL.Host == "" {
		return nil, config.ClientConfig{}, fmt.Errorf("a backend url is required, use --backend or --config")
	}
	return backendURL, clientConfig, nil
}
