package cli

import (
	"errors"
	"fmt"

	"github.com/manishahirrao/postpilot/content"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var req content.PostRequest

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a LinkedIn post",
		Long:  "Generate post text and an image caption, uploading the image first when one is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state := opts.app.Auth.Bootstrap(ctx)
			if !state.Authenticated {
				return errors.New("not signed in, run 'postpilot login' first")
			}
			if req.AccountType == "" {
				req.AccountType = state.User.AccountType
			}
			if req.Name == "" {
				req.Name = state.User.Profile.FullName
			}

			generator, err := newGenerator(opts)
			if err != nil {
				return err
			}
			post, err := generator.Generate(ctx, req)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, post.Text)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Caption: %s\n", post.ImageCaption)
			if post.ImageURL != "" {
				fmt.Fprintf(out, "Image:   %s\n", post.ImageURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Topic, "topic", "", "What the post is about")
	cmd.Flags().StringVar(&req.Tone, "tone", content.DefaultTone, "Tone of voice")
	cmd.Flags().StringVar(&req.Audience, "audience", content.DefaultAudience, "Target audience")
	cmd.Flags().StringVar(&req.Industry, "industry", "", "Industry")
	cmd.Flags().StringVar(&req.Name, "name", "", "Author or company name (defaults to the profile name)")
	cmd.Flags().StringVar(&req.ImagePath, "image", "", "Path of an image to attach")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newGenerator(opts *rootOptions) (*content.Generator, error) {
	cfg := opts.cfg
	chat, err := content.NewOpenAIChat(cfg.GetOpenAIKey(), cfg.GetOpenAIBaseURL(), cfg.GetOpenAIModel())
	if err != nil {
		return nil, err
	}

	var generatorOptions []content.GeneratorOption
	uploader, err := content.NewCloudinaryUploader(cfg.GetCloudinaryCloudName(), cfg.GetCloudinaryAPIKey(), cfg.GetCloudinaryAPISecret(), cfg.GetCloudinaryFolder())
	switch {
	case err == nil:
		generatorOptions = append(generatorOptions, content.WithImageUploader(uploader))
	case apperrors.Is(err, apperrors.ErrConfigMissing):
		log.Debug().Msg("cloudinary not configured, image uploads disabled")
	default:
		return nil, err
	}
	return content.NewGenerator(chat, generatorOptions...), nil
}
