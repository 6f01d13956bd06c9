package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"civicreport-be/client"

	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	if err := newRootCommand().Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "civicctl",
		Usage: "Report and track municipal issues from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "API base URL",
				Sources: cli.EnvVars("CIVICCTL_SERVER"),
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session file (default ~/.civicctl/session.json)",
			},
		},
		Commands: []*cli.Command{
			registerCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			issuesCommand(),
		},
	}
}

// app is the per-invocation state shared by all commands.
type app struct {
	api         *client.APIClient
	sessionPath string
}

func newApp(cmd *cli.Command) (*app, error) {
	path := cmd.String("session")
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	session, err := client.LoadSession(path)
	if err != nil {
		return nil, err
	}
	return &app{
		api:         client.NewAPIClient(cmd.String("server"), session, nil),
		sessionPath: path,
	}, nil
}

func (a *app) saveSession() error {
	return a.api.Session().Save(a.sessionPath)
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("CIVICCTL_PASSWORD")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			user, err := a.api.Register(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("registered and signed in as %s <%s>\n", user.Name, user.Email)
			return a.saveSession()
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("CIVICCTL_PASSWORD")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			user, err := a.api.Login(ctx, cmd.String("email"), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
			return a.saveSession()
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Clear the stored session",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.api.Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
			}
			fmt.Println("signed out")
			return a.saveSession()
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if a.api.Session().State() != client.SessionAuthenticated {
				fmt.Println("not signed in")
				return nil
			}
			user, err := a.api.Me(ctx)
			if err != nil {
				return err
			}
			printKV([][2]string{
				{"ID", user.ID.Hex()},
				{"Name", user.Name},
				{"Email", user.Email},
				{"Role", string(user.Role)},
				{"Member since", formatAge(user.CreatedAt)},
			})
			return nil
		},
	}
}
