package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"travi_content/internal/adapters/cmsapi"
	"travi_content/internal/app"
	"travi_content/internal/domain"
)

// newRootCmd builds the command tree. Settings come from flags, then CMSCTL_* variables.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("cmsctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "cmsctl",
		Short:        "Command-line client for the Travi CMS API",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("api-url", "http://localhost:3001", "CMS API base URL")
	pf.String("token", "", "bearer token sent with every request")
	pf.Int("rps", 5, "client-side request rate limit")
	pf.Duration("timeout", 30*time.Second, "overall command timeout")
	for _, name := range []string{"api-url", "token", "rps", "timeout"} {
		if err := v.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s flag: %v", name, err))
		}
	}

	client := func() (*cmsapi.Client, error) {
		return cmsapi.New(v.GetString("api-url"), v.GetString("token"), v.GetInt("rps"))
	}
	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
	}

	root.AddCommand(
		getCmd(client, withTimeout),
		listCmd(client, withTimeout),
		createCmd(client, withTimeout),
		updateCmd(client, withTimeout),
		putCmd(client, withTimeout),
		deleteCmd(client, withTimeout),
	)
	return root
}

type clientFunc func() (*cmsapi.Client, error)
type ctxFunc func(*cobra.Command) (context.Context, context.CancelFunc)

func checkResource(name string) error {
	if _, ok := domain.Resources[name]; !ok {
		return fmt.Errorf("unknown resource %q", name)
	}
	return nil
}

func getCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> [id|key]",
		Short: "Print a resource, or one record or entry of it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			var out json.RawMessage
			if len(args) == 2 {
				out, err = c.Record(ctx, args[0], args[1])
			} else {
				out, err = c.Document(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func listCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	var fallback bool
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print a whole resource; with --fallback, placeholder data when the API fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := args[0]
			if err := checkResource(res); err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			fetch := func(ctx context.Context) (json.RawMessage, error) { return c.Document(ctx, res) }
			if !fallback {
				out, err := fetch(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			}
			r := app.FetchOrPlaceholder(ctx, "list "+res, fetch, cmsapi.Placeholder(res))
			if r.Placeholder() {
				fmt.Fprintf(cmd.ErrOrStderr(), "showing placeholder data: %v\n", r.Err)
			}
			return printJSON(cmd.OutOrStdout(), r.Data)
		},
	}
	cmd.Flags().BoolVar(&fallback, "fallback", false, "print placeholder data instead of failing")
	return cmd
}

func createCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Append a record to a collection; the server assigns the id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			body, err := readData(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := c.Create(ctx, args[0], body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func updateCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "update <collection> <id>",
		Short: "Merge top-level fields into a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			body, err := readData(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := c.Update(ctx, args[0], args[1], body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func putCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "put <resource> [key]",
		Short: "Replace a singleton or list, or one dictionary entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			body, err := readData(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := c.Replace(ctx, args[0], key, body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	addDataFlag(cmd, &data)
	return cmd
}

func deleteCmd(client clientFunc, withTimeout ctxFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Remove a record; succeeds when it is already gone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			c, err := client()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := c.Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func addDataFlag(cmd *cobra.Command, data *string) {
	cmd.Flags().StringVarP(data, "data", "d", "-", "JSON body, @file to read a file, or - for stdin")
}

// readData resolves the --data flag into a JSON value.
func readData(stdin io.Reader, data string) (json.RawMessage, error) {
	var raw []byte
	var err error
	switch {
	case data == "-":
		raw, err = io.ReadAll(stdin)
	case strings.HasPrefix(data, "@"):
		raw, err = os.ReadFile(strings.TrimPrefix(data, "@"))
	default:
		raw = []byte(data)
	}
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
