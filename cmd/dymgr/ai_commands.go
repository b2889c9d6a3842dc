package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dymgr/internal/api"
	"dymgr/internal/client"
	"dymgr/internal/navigation"
)

func newAICommand(ctx *commandContext) *cobra.Command {
	aiCmd := &cobra.Command{
		Use:         "ai",
		Short:       "Generate copy and images",
		Annotations: map[string]string{annotationRoute: navigation.AIPath},
	}

	aiCmd.AddCommand(newAIGenerateCommand(ctx, "text <prompt>", "Generate free-form text",
		func(c context.Context, svc *api.AIService, args []string) (*api.Generation, error) {
			return svc.Text(c, strings.Join(args, " "))
		}))
	aiCmd.AddCommand(newAIGenerateCommand(ctx, "title <content>", "Suggest a video title",
		func(c context.Context, svc *api.AIService, args []string) (*api.Generation, error) {
			return svc.Title(c, strings.Join(args, " "))
		}))
	aiCmd.AddCommand(newAIDescriptionCommand(ctx))
	aiCmd.AddCommand(newAIImageCommand(ctx))

	return aiCmd
}

type generateFunc func(context.Context, *api.AIService, []string) (*api.Generation, error)

func newAIGenerateCommand(ctx *commandContext, use, short string, generate generateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				gen, err := generate(c, cl.API.AI, args)
				if err != nil {
					return fmt.Errorf("generate: %w", err)
				}
				return printGeneration(cmd, ctx, gen)
			})
		},
	}
}

func newAIDescriptionCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "description <content>",
		Short: "Suggest a video description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				gen, err := cl.API.AI.Description(c, title, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("generate description: %w", err)
				}
				return printGeneration(cmd, ctx, gen)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Video title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAIImageCommand(ctx *commandContext) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(c context.Context, cl *client.Client) error {
				gen, err := cl.API.AI.Image(c, strings.Join(args, " "), model)
				if err != nil {
					return fmt.Errorf("generate image: %w", err)
				}
				return printGeneration(cmd, ctx, gen)
			})
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", api.DefaultImageModel, "Image model (stable-diffusion or dall-e)")
	return cmd
}

func printGeneration(cmd *cobra.Command, ctx *commandContext, gen *api.Generation) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, gen)
	}
	if !gen.Success {
		return fmt.Errorf("generation failed: %s", gen.Error)
	}
	out := cmd.OutOrStdout()
	if gen.FilePath != "" {
		fmt.Fprintf(out, "%s: %s\n", gen.Result, gen.FilePath)
		return nil
	}
	fmt.Fprintln(out, gen.Result)
	return nil
}
