package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SwissDataScienceCenter/plantcare-gateway/internal/authclient"
)

func (c *loginCommand) Execute(args []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	if err := c.app.client.Login(context.Background(), c.Username, c.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(c.app.out, "logged in as %s\n", c.Username)
	return nil
}

func (c *registerCommand) Execute(args []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	err := c.app.client.Register(context.Background(), authclient.RegistrationRequest{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintf(c.app.out, "registered %s, you can now log in\n", c.Username)
	return nil
}

func (c *logoutCommand) Execute(args []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	if err := c.app.client.Logout(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(c.app.out, "logged out")
	return nil
}

func (c *statusCommand) Execute(args []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	creds, err := c.app.client.Credentials(context.Background())
	if err != nil {
		return err
	}
	if creds.AccessToken == "" {
		fmt.Fprintln(c.app.out, "not logged in")
		return nil
	}
	fmt.Fprintln(c.app.out, "logged in")
	if expiresAt, ok := creds.AccessTokenExpiry(); ok {
		fmt.Fprintf(c.app.out, "access token valid until %s\n", expiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (c *getCommand) Execute(args []string) error {
	return c.app.send(http.MethodGet, c.Args.Path, nil)
}

func (c *postCommand) Execute(args []string) error {
	return c.app.send(http.MethodPost, c.Args.Path, strings.NewReader(c.Data))
}

// send makes an authenticated call and prints the response body
func (a *app) send(method, backendPath string, body io.Reader) error {
	if err := a.setup(); err != nil {
		return err
	}
	target, err := a.client.URL(backendPath)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if _, err := io.Copy(a.out, res.Body); err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("the backend answered %s", res.Status)
	}
	return nil
}
