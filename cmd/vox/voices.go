package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxloop/vox/internal/db/migrations"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/svc"
)

// withServiceContext builds a service context for one-shot CLI commands.
func withServiceContext(fn func(ctx context.Context, svcCtx *svc.ServiceContext) error) error {
	if !verbose {
		logging.Disable()
		migrations.QuietMode = true
	}

	svcCtx, err := svc.NewServiceContext(*ServerConfig)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	return fn(context.Background(), svcCtx)
}

// EnrollCmd registers a voice from a local audio file.
func EnrollCmd() *cobra.Command {
	var displayName, description string

	cmd := &cobra.Command{
		Use:   "enroll <audio-file>",
		Short: "Enroll a new voice from an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServiceContext(func(ctx context.Context, svcCtx *svc.ServiceContext) error {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				name := filepath.Base(args[0])
				v, err := svcCtx.Pipeline.Enroll(ctx, raw, name, name, displayName, description)
				if err != nil {
					return err
				}
				fmt.Printf("Enrolled voice %s (%.2fs at %d Hz)\n", v.ID, v.Duration, v.SampleRate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name for the voice")
	cmd.Flags().StringVar(&description, "description", "", "description for the voice")
	return cmd
}

// SayCmd synthesizes speech in an enrolled voice.
func SayCmd() *cobra.Command {
	var output, format string
	var sampleRate int

	cmd := &cobra.Command{
		Use:   "say <voice-id> <text>",
		Short: "Synthesize speech in an enrolled voice",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServiceContext(func(ctx context.Context, svcCtx *svc.ServiceContext) error {
				text := strings.Join(args[1:], " ")
				data, _, err := svcCtx.Pipeline.Synthesize(ctx, args[0], text, format, sampleRate)
				if err != nil {
					return err
				}
				out := output
				if out == "" {
					out = "out." + format
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %d bytes to %s\n", len(data), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: out.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "wav", "output format (wav or mp3)")
	cmd.Flags().IntVarP(&sampleRate, "rate", "r", 0, "output sample rate (default: enrollment rate)")
	return cmd
}

// VoicesCmd lists and deletes enrolled voices.
func VoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List enrolled voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServiceContext(func(ctx context.Context, svcCtx *svc.ServiceContext) error {
				voicesList, err := svcCtx.Store.List(ctx)
				if err != nil {
					return err
				}
				if len(voicesList) == 0 {
					fmt.Println("No voices enrolled.")
					return nil
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDURATION\tRATE\tCREATED")
				for _, v := range voicesList {
					fmt.Fprintf(tw, "%s\t%s\t%.1fs\t%d Hz\t%s\n",
						v.ID, v.DisplayName, v.Duration, v.SampleRate,
						v.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <voice-id>",
		Short: "Delete an enrolled voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServiceContext(func(ctx context.Context, svcCtx *svc.ServiceContext) error {
				if err := svcCtx.Pipeline.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted voice %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}
