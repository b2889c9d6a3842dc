package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dymgr/internal/api"
	"dymgr/internal/client"
	"dymgr/internal/navigation"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	videosCmd := &cobra.Command{
		Use:         "videos",
		Short:       "Manage uploaded works",
		Annotations: map[string]string{annotationRoute: navigation.VideosPath},
	}

	videosCmd.AddCommand(newVideosListCommand(ctx))
	videosCmd.AddCommand(newVideosGetCommand(ctx))
	videosCmd.AddCommand(newVideosUploadCommand(ctx))
	videosCmd.AddCommand(newVideosUpdateCommand(ctx))
	videosCmd.AddCommand(newVideosDeleteCommand(ctx))

	return videosCmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid video id %q", raw)
	}
	return id, nil
}

func newVideosListCommand(ctx *commandContext) *cobra.Command {
	var opts api.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				videos, err := cl.API.Videos.List(c, opts)
				if err != nil {
					return fmt.Errorf("list videos: %w", err)
				}
				if ctx.jsonOutput() {
					if videos == nil {
						videos = []api.Video{}
					}
					return writeJSON(cmd, videos)
				}
				if len(videos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No videos")
					return nil
				}
				rows := make([][]string, 0, len(videos))
				for _, v := range videos {
					rows = append(rows, []string{
						strconv.FormatInt(v.ID, 10),
						v.Title,
						humanLabel(v.Status),
						humanLabel(deref(v.PublishStatus)),
						v.UpdatedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Publish", "Updated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "Number of videos to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", api.DefaultListLimit, "Maximum videos to return")
	return cmd
}

func newVideosGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				video, err := cl.API.Videos.Get(c, id)
				if err != nil {
					return fmt.Errorf("get video %d: %w", id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, video)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
					{"ID", strconv.FormatInt(video.ID, 10)},
					{"Title", video.Title},
					{"Description", deref(video.Description)},
					{"Status", humanLabel(video.Status)},
					{"Publish", humanLabel(deref(video.PublishStatus))},
					{"Douyin URL", deref(video.DouyinURL)},
					{"Created", video.CreatedAt},
					{"Updated", video.UpdatedAt},
				}))
				return nil
			})
		},
	}
}

func newVideosUploadCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open video: %w", err)
			}
			defer file.Close()
			if strings.TrimSpace(title) == "" {
				title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				uploaded, err := cl.API.Videos.Upload(c, api.Upload{
					Title:       title,
					Description: description,
					Filename:    filepath.Base(path),
					Content:     file,
				})
				if err != nil {
					return fmt.Errorf("upload video: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, uploaded)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded video %d (%s)\n", uploaded.ID, uploaded.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title (defaults to the file name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	return cmd
}

func newVideosUpdateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a video's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var update api.VideoUpdate
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if update.Title == nil && update.Description == nil {
				return fmt.Errorf("nothing to update: pass --title and/or --description")
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				updated, err := cl.API.Videos.Update(c, id, update)
				if err != nil {
					return fmt.Errorf("update video %d: %w", id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, updated)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated video %d (%s)\n", updated.ID, updated.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func newVideosDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				msg, err := cl.API.Videos.Delete(c, id)
				if err != nil {
					return fmt.Errorf("delete video %d: %w", id, err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, msg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted video %d\n", id)
				return nil
			})
		},
	}
}
