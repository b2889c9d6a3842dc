package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dymgr/internal/api"
	"dymgr/internal/client"
	"dymgr/internal/navigation"
)

func newDouyinCommand(ctx *commandContext) *cobra.Command {
	douyinCmd := &cobra.Command{
		Use:         "douyin",
		Short:       "Link a Douyin account and publish to it",
		Annotations: map[string]string{annotationRoute: navigation.DouyinPath},
	}

	douyinCmd.AddCommand(newDouyinAuthURLCommand(ctx))
	douyinCmd.AddCommand(newDouyinCallbackCommand(ctx))
	douyinCmd.AddCommand(newDouyinVideosCommand(ctx))
	douyinCmd.AddCommand(newDouyinPublishCommand(ctx))
	douyinCmd.AddCommand(newDouyinStatusCommand(ctx))

	return douyinCmd
}

func newDouyinAuthURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Douyin authorization URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				auth, err := cl.API.Auth.DouyinAuthURL(c)
				if err != nil {
					return fmt.Errorf("douyin auth url: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, auth)
				}
				fmt.Fprintln(cmd.OutOrStdout(), auth.AuthURL)
				return nil
			})
		},
	}
}

func newDouyinCallbackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "callback <code>",
		Short: "Complete Douyin authorization with the returned code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				link, err := cl.API.Auth.DouyinCallback(c, code)
				if err != nil {
					return fmt.Errorf("douyin callback: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, link)
				}
				fmt.Fprintln(cmd.OutOrStdout(), link.Message)
				return nil
			})
		},
	}
}

func newDouyinVideosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "videos",
		Short: "List videos on the linked Douyin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				doc, err := cl.API.Douyin.Videos(c)
				if err != nil {
					return fmt.Errorf("douyin videos: %w", err)
				}
				return writeDocument(cmd, doc)
			})
		},
	}
}

func newDouyinPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <video-id>",
		Short: "Publish a local video to Douyin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				task, err := cl.API.Douyin.Publish(c, id)
				if err != nil {
					return fmt.Errorf("publish video %d: %w", id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, task)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Publish task %s created\n", task.TaskID)
				return nil
			})
		},
	}
}

func newDouyinStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the state of a publish task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := strings.TrimSpace(args[0])
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				doc, err := cl.API.Douyin.PublishStatus(c, taskID)
				if err != nil {
					return fmt.Errorf("publish status %s: %w", taskID, err)
				}
				if ctx.jsonOutput() {
					return writeDocument(cmd, doc)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderStatusLine("Task "+taskID, statusInfo, humanLabel(doc.Status()), shouldColorize(out)))
				return nil
			})
		},
	}
}

// writeDocument pretty prints an upstream document as-is.
func writeDocument(cmd *cobra.Command, doc *api.Document) error {
	if doc == nil || len(doc.Raw) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc.Raw, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
