package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dymgr/internal/api"
	"dymgr/internal/client"
	"dymgr/internal/navigation"
	"dymgr/internal/services"
	"dymgr/internal/session"
)

type resultView struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func viewResult(result session.Result) resultView {
	return resultView{Success: result.Success, Error: result.Error, Kind: services.Kind(result.Err)}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Exchange credentials for a bearer token and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			secret, err := readPassword(cmd, password, passwordStdin, "Password: ")
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				result := cl.Session.Login(c, api.Credentials{Username: username, Password: secret})
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, viewResult(result)); err != nil {
						return err
					}
				}
				if !result.Success {
					return fmt.Errorf("login failed: %s", result.Error)
				}
				if ctx.jsonOutput() {
					return nil
				}
				name := username
				if user := cl.Session.User(); user != nil {
					name = user.Username
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				cl.Session.Logout()
				if ctx.jsonOutput() {
					return writeJSON(cmd, resultView{Success: true})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account (does not log in)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			secret, err := readPassword(cmd, password, passwordStdin, "Choose a password: ")
			if err != nil {
				return err
			}
			reg := api.Registration{Username: strings.TrimSpace(args[0]), Email: strings.TrimSpace(email), Password: secret}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				result := cl.Session.Register(c, reg)
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, viewResult(result)); err != nil {
						return err
					}
				}
				if !result.Success {
					return fmt.Errorf("registration failed: %s", result.Error)
				}
				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Registered %s; run `dymgr login %s` to sign in\n", reg.Username, reg.Username)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the profile of the logged in account",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRoute: navigation.DashboardPath},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				user, err := cl.API.Auth.Me(c)
				if err != nil {
					return fmt.Errorf("fetch profile: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, user)
				}
				douyin := "not linked"
				if user.DouyinLinked() {
					douyin = *user.DouyinUserID
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
					{"ID", fmt.Sprintf("%d", user.ID)},
					{"Username", user.Username},
					{"Email", user.Email},
					{"Active", yesNo(user.IsActive)},
					{"Douyin", douyin},
					{"Created", user.CreatedAt},
				}))
				return nil
			})
		},
	}
}

type statusView struct {
	BaseURL    string    `json:"base_url"`
	Backend    string    `json:"backend"`
	BackendErr string    `json:"backend_error,omitempty"`
	State      string    `json:"state"`
	User       *api.User `json:"user,omitempty"`
	Credential string    `json:"credential_backend"`
	Validation string    `json:"validate_on_start"`
	ConfigPath string    `json:"config_path"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend reachability and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				view := statusView{
					BaseURL:    cl.Dispatcher.BaseURL(),
					Credential: cl.Config.Session.CredentialBackend,
					Validation: cl.Config.Session.ValidateOnStart,
					ConfigPath: ctx.configPath,
				}
				if health, err := cl.Health(c); err != nil {
					view.Backend = "unreachable"
					view.BackendErr = err.Error()
				} else {
					view.Backend = health.Status
				}
				if _, ok := cl.Session.Token(); ok && view.BackendErr == "" {
					cl.Session.FetchProfile(c)
				}
				snap := cl.Session.Snapshot()
				view.State = string(snap.State)
				view.User = snap.User

				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				backendKind := statusOK
				backendMsg := humanLabel(view.Backend)
				if view.BackendErr != "" {
					backendKind = statusError
					backendMsg = view.BackendErr
				}
				sessionKind := statusWarn
				sessionMsg := humanLabel(view.State)
				if snap.Authenticated() {
					sessionKind = statusOK
					if snap.User != nil {
						sessionMsg = fmt.Sprintf("%s as %s", sessionMsg, snap.User.Username)
					}
				}
				fmt.Fprintln(out, renderStatusLine("Backend", backendKind, backendMsg, colorize))
				fmt.Fprintln(out, renderStatusLine("Session", sessionKind, sessionMsg, colorize))
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, view.BaseURL, colorize))
				fmt.Fprintln(out, renderStatusLine("Credentials", statusInfo, view.Credential, colorize))
				fmt.Fprintln(out, renderStatusLine("Startup check", statusInfo, humanLabel(view.Validation), colorize))
				return nil
			})
		},
	}
}
