package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pustaklink/pustaklink/pkg/apiclient"
	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
	"github.com/pustaklink/pustaklink/pkg/listings"
)

func newFilterCommand(rootOpts *rootOptions) *cobra.Command {
	var fc books.FilterCriteria
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Find books to borrow",
		Long: `Filter the lending catalog. Search matches titles and authors, author matches authors,
and subject, college and condition must match exactly. Every flag is optional.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := rootOpts.logger(cmd.ErrOrStderr())
			log.Debug("filtering", zap.Bool("local", rootOpts.Local), zap.Any("criteria", fc))
			recs, err := rootOpts.filterBooks(cmd.Context(), fc)
			if err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)
			return f.emit(recs, func(w io.Writer) error {
				return writeBooks(w, recs, f.width()/3)
			})
		},
	}
	cmd.Flags().StringVar(&fc.Search, "search", "", "text to find in titles and authors")
	cmd.Flags().StringVar(&fc.Subject, "subject", "", "exact subject")
	cmd.Flags().StringVar(&fc.Author, "author", "", "text to find in authors")
	cmd.Flags().StringVar(&fc.College, "college", "", "exact lender college")
	cmd.Flags().StringVar(&fc.Condition, "condition", "", "exact condition (excellent, good, fair, poor)")
	return cmd
}

func newBookCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book from the lending catalog",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := rootOpts.getBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(b, func(w io.Writer) error {
				return writeBook(w, b)
			})
		},
	}
}

type contactOptions struct {
	requester contact.Requester
	qr        string
	out       string
	size      int
	level     string
}

func newContactCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &contactOptions{}
	cmd := &cobra.Command{
		Use:   "contact <id>",
		Short: "Get the links for asking a lender for a book",
		Long: `Print the phone, email and WhatsApp links for asking a lender for a book.
With --qr, one of the links is also written to a PNG file as a QR code.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContact(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.requester.Name, "name", "", "your name")
	cmd.Flags().StringVar(&opts.requester.College, "college", "", "your college")
	cmd.Flags().StringVar(&opts.requester.Phone, "phone", "", "your phone number")
	cmd.Flags().StringVar(&opts.requester.Email, "email", "", "your email address")
	cmd.Flags().StringVar(&opts.qr, "qr", "", "write a QR code for this channel (tel, mailto, whatsapp)")
	cmd.Flags().StringVarP(&opts.out, "output", "o", "contact.png", "QR code file")
	cmd.Flags().IntVar(&opts.size, "size", contact.DefaultQRSize, "QR code size in pixels")
	cmd.Flags().StringVar(&opts.level, "level", "m", "QR recovery level (l, m, h, x)")
	return cmd
}

func runContact(cmd *cobra.Command, rootOpts *rootOptions, opts *contactOptions, id string) error {
	var links contact.Links
	if rootOpts.Local {
		b, err := rootOpts.getBook(cmd.Context(), id)
		if err != nil {
			return err
		}
		links = contact.ForBook(b, opts.requester)
	} else {
		var err error
		if links, err = rootOpts.client().GetContact(cmd.Context(), id, opts.requester); err != nil {
			return err
		}
	}

	if opts.qr != "" {
		link, err := links.Get(contact.Channel(opts.qr))
		if err != nil {
			return wrapExitError(exitUsage, "--qr", err)
		}
		level, err := contact.ParseLevel(opts.level)
		if err != nil {
			return wrapExitError(exitUsage, "--level", err)
		}
		png, err := contact.QRCode(link, level, opts.size)
		if err != nil {
			return wrapExitError(exitUsage, "qr code", err)
		}
		if err := os.WriteFile(opts.out, png, 0o644); err != nil {
			return err
		}
		rootOpts.logger(cmd.ErrOrStderr()).Debug("wrote qr code", zap.String("file", opts.out), zap.Int("bytes", len(png)))
	}

	return rootOpts.formatter(cmd).emit(links, func(w io.Writer) error {
		if err := writeLinks(w, links); err != nil {
			return err
		}
		if opts.qr != "" {
			_, err := fmt.Fprintf(w, "QR code written to %s\n", opts.out)
			return err
		}
		return nil
	})
}

func newListingsCommand(rootOpts *rootOptions) *cobra.Command {
	var p apiclient.ListingParams
	var priceMin, priceMax float64
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Browse books for sale",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("price-min") {
				p.PriceMin = &priceMin
			}
			if cmd.Flags().Changed("price-max") {
				p.PriceMax = &priceMax
			}
			ls, err := rootOpts.client().GetListings(cmd.Context(), p)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(ls, func(w io.Writer) error {
				return writeListings(w, ls)
			})
		},
	}
	cmd.Flags().StringVar(&p.College, "college", "", "text to find in the location")
	cmd.Flags().StringVar(&p.Subject, "subject", "", "text to find in the subject")
	cmd.Flags().IntVar(&p.Semester, "semester", 0, "semester (1-8)")
	cmd.Flags().Float64Var(&priceMin, "price-min", 0, "lowest price")
	cmd.Flags().Float64Var(&priceMax, "price-max", 0, "highest price")
	cmd.Flags().StringVar(&p.Condition, "condition", "", "condition (new, like_new, used, worn)")
	cmd.Flags().IntVar(&p.Edition, "edition", 0, "edition")
	cmd.Flags().StringVar(&p.Sort, "sort", "", "order (newest, price_asc, price_desc)")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&p.Offset, "offset", 0, "listings to skip")
	return cmd
}

func listingIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, newExitError(exitUsage, fmt.Sprintf("listing id %q must be an integer", arg))
	}
	return id, nil
}

func newListingCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <id>",
		Short: "Show one book for sale",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := listingIDArg(args[0])
			if err != nil {
				return err
			}
			l, err := rootOpts.client().GetListing(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(l, func(w io.Writer) error {
				return writeListing(w, l)
			})
		},
	}
}

func newSellCommand(rootOpts *rootOptions) *cobra.Command {
	var lc listings.ListingCreate
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Put a book up for sale",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lc.Validate(); err != nil {
				return wrapExitError(exitUsage, "sell", err)
			}
			l, err := rootOpts.client().CreateListing(cmd.Context(), lc)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(l, func(w io.Writer) error {
				return writeListing(w, l)
			})
		},
	}
	cmd.Flags().StringVar(&lc.ISBN, "isbn", "", "ISBN of the book")
	cmd.Flags().Float64Var(&lc.Price, "price", 0, "asking price")
	cmd.Flags().StringVar(&lc.Condition, "condition", listings.Used, "condition (new, like_new, used, worn)")
	cmd.Flags().StringVar(&lc.Subject, "subject", "", "subject")
	cmd.Flags().IntVar(&lc.Semester, "semester", 1, "semester (1-8)")
	cmd.Flags().IntVar(&lc.Edition, "edition", 1, "edition")
	cmd.Flags().StringVar(&lc.Location, "location", "", "where to pick the book up")
	cmd.Flags().StringVar(&lc.Description, "description", "", "anything a buyer should know")
	cmd.Flags().StringSliceVar(&lc.Images, "image", nil, "image URL (repeatable)")
	return cmd
}

func newMarkSoldCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-sold <id>",
		Short: "Take a listing off the market",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := listingIDArg(args[0])
			if err != nil {
				return err
			}
			if err := rootOpts.client().MarkSold(cmd.Context(), id); err != nil {
				return err
			}
			result := map[string]interface{}{"id": id, "sold": true}
			return rootOpts.formatter(cmd).emit(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Listing %d marked as sold\n", id)
				return err
			})
		},
	}
}

func newReportCommand(rootOpts *rootOptions) *cobra.Command {
	var reason, description string
	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Report a listing to the moderators",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := listingIDArg(args[0])
			if err != nil {
				return err
			}
			if reason == "" {
				return newExitError(exitUsage, "--reason is required")
			}
			r, err := rootOpts.client().ReportListing(cmd.Context(), id, reason, description)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(r, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Report %d filed against listing %d\n", r.ID, r.ListingID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the listing is a problem")
	cmd.Flags().StringVar(&description, "description", "", "more detail")
	return cmd
}

func newISBNCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "isbn <isbn>",
		Short: "Look up a book by ISBN",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rootOpts.client().GetBookInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).emit(info, func(w io.Writer) error {
				return writeBookInfo(w, info)
			})
		},
	}
}
