package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pustaklink/pustaklink/pkg/apiclient"
	"github.com/pustaklink/pustaklink/pkg/books"
)

// cliEnv holds the settings that can come from the environment.
type cliEnv struct {
	Server string `env:"PUSTAK_SERVER" default:"http://localhost:8000"`
	Token  string `env:"PUSTAK_TOKEN"`
}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Server  string
	Token   string
	Format  string // "json" | "text"
	Verbose bool
	Local   bool
	Timeout time.Duration
}

var validFormats = []string{"text", "json"}

func newRootCommand(defaults cliEnv) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "pustak",
		Short: "PustakLink from the command line",
		Long: `Browse the PustakLink lending catalog and the used-book marketplace,
and get in touch with the students lending the books.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return newExitError(exitUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats))
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return wrapExitError(exitUsage, c.CommandPath(), err)
	})

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Server, "server", defaults.Server, "PustakLink server URL (env PUSTAK_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", defaults.Token, "bearer token sent with every request (env PUSTAK_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.Local, "local", false, "use the built-in lending catalog instead of a server")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newFilterCommand(opts))
	cmd.AddCommand(newBookCommand(opts))
	cmd.AddCommand(newContactCommand(opts))
	cmd.AddCommand(newListingsCommand(opts))
	cmd.AddCommand(newListingCommand(opts))
	cmd.AddCommand(newSellCommand(opts))
	cmd.AddCommand(newMarkSoldCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newISBNCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// exactArgs is cobra.ExactArgs with usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return wrapExitError(exitUsage, cmd.CommandPath(), err)
		}
		return nil
	}
}

func (o *rootOptions) formatter(cmd *cobra.Command) *formatter {
	return &formatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// logger writes debug logs to w when --verbose is set, and discards them otherwise.
func (o *rootOptions) logger(w io.Writer) *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func (o *rootOptions) client() *apiclient.Client {
	return apiclient.New(o.Server,
		apiclient.HTTPClientOpt(&http.Client{Timeout: o.Timeout}),
		apiclient.TokenOpt(o.Token),
	)
}

// filterBooks runs the catalog filter locally or on the server.
func (o *rootOptions) filterBooks(ctx context.Context, fc books.FilterCriteria) ([]books.BookRecord, error) {
	if o.Local {
		return books.Filter(books.DefaultCatalog(), fc), nil
	}
	return o.client().FilterCatalog(ctx, fc)
}

// getBook fetches one lending record locally or from the server.
func (o *rootOptions) getBook(ctx context.Context, id string) (books.BookRecord, error) {
	if !o.Local {
		return o.client().GetBook(ctx, id)
	}
	for _, b := range books.DefaultCatalog() {
		if b.ID == id {
			return b, nil
		}
	}
	return books.BookRecord{}, fmt.Errorf("%s: %w", id, books.ErrNotFound)
}
