package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/joe-pages/internal/client"
)

type pageFlags struct {
	server  string
	token   string
	timeout time.Duration
}

func (f *pageFlags) client() (*client.Client, error) {
	if f.token == "" {
		return nil, errors.New("a token is required: pass --token or set JOE_TOKEN")
	}
	return client.New(f.server, client.WithToken(f.token), client.WithTimeout(f.timeout)), nil
}

func newPageCmd() *cobra.Command {
	flags := &pageFlags{}
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Check and save pages on a running server",
	}

	server := os.Getenv("JOE_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	cmd.PersistentFlags().StringVar(&flags.server, "server", server, "server base URL (env JOE_SERVER)")
	cmd.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("JOE_TOKEN"), "identity token (env JOE_TOKEN)")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", client.DefaultTimeout, "per-request timeout")

	cmd.AddCommand(newPageCheckCmd(flags))
	cmd.AddCommand(newPageSaveCmd(flags))
	return cmd
}

func newPageCheckCmd(flags *pageFlags) *cobra.Command {
	var pageID int64
	cmd := &cobra.Command{
		Use:   "check <address>",
		Short: "Report whether an address is available to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			field := client.NewSlugField(c)
			if pageID > 0 {
				field.SetPageID(&pageID)
			}
			shaped := field.SetInput(args[0])

			res, err := field.Check(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case shaped == "":
				fmt.Fprintln(out, "unavailable: must provide a valid address.")
			case res.Available:
				fmt.Fprintf(out, "available: /%s\n", res.Slug)
			default:
				fmt.Fprintf(out, "unavailable: /%s: %s\n", res.Slug, res.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&pageID, "id", 0, "id of the page being edited")
	return cmd
}

func newPageSaveCmd(flags *pageFlags) *cobra.Command {
	var (
		pageID int64
		in     client.PageInput
	)
	cmd := &cobra.Command{
		Use:   "save <address>",
		Short: "Create a page, or update one with --id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			field := client.NewSlugField(c)
			if pageID > 0 {
				in.ID = &pageID
				field.SetPageID(&pageID)
			}
			field.SetInput(args[0])

			saved, err := field.Submit(cmd.Context(), c.Saver(in))
			var unavailable *client.UnavailableError
			if errors.As(err, &unavailable) {
				return fmt.Errorf("/%s: %s", unavailable.Slug, unavailable.Message)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved: %s/%s\n", flags.server, saved)
			return nil
		},
	}
	cmd.Flags().Int64Var(&pageID, "id", 0, "id of the page to update")
	cmd.Flags().StringVar(&in.Title, "title", "", "page title")
	cmd.Flags().StringVar(&in.Description, "description", "", "page description")
	cmd.Flags().StringVar(&in.InstagramURL, "instagram", "", "Instagram handle or URL")
	return cmd
}
