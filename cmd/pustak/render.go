package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pustaklink/pustaklink/pkg/books"
	"github.com/pustaklink/pustaklink/pkg/contact"
	"github.com/pustaklink/pustaklink/pkg/isbn"
	"github.com/pustaklink/pustaklink/pkg/listings"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// writeBooks lists catalog records, one per row. titleWidth limits the title column.
func writeBooks(w io.Writer, recs []books.BookRecord, titleWidth int) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No books match.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSUBJECT\tCONDITION\tLENDER\tCOLLEGE\tDAYS")
	for _, b := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			b.ID, clip(b.Title, titleWidth), b.Author, b.Subject, b.Condition, b.LenderName, b.LenderCollege, b.BorrowDuration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d books\n", len(recs))
	return err
}

func writeBook(w io.Writer, b books.BookRecord) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "Author:\t%s\n", b.Author)
	fmt.Fprintf(tw, "Subject:\t%s\n", b.Subject)
	fmt.Fprintf(tw, "Condition:\t%s\n", b.Condition)
	fmt.Fprintf(tw, "Lender:\t%s, %s\n", b.LenderName, b.LenderCollege)
	fmt.Fprintf(tw, "Contact:\t%s\n", b.LenderContact)
	fmt.Fprintf(tw, "Borrow for:\t%d days\n", b.BorrowDuration)
	return tw.Flush()
}

func writeLinks(w io.Writer, l contact.Links) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Phone:\t%s\n", l.Tel)
	fmt.Fprintf(tw, "Email:\t%s\n", l.Mailto)
	fmt.Fprintf(tw, "WhatsApp:\t%s\n", l.WhatsApp)
	return tw.Flush()
}

func writeListings(w io.Writer, ls []listings.Listing) error {
	if len(ls) == 0 {
		_, err := fmt.Fprintln(w, "No listings match.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tISBN\tPRICE\tCONDITION\tSUBJECT\tSEM\tED\tLOCATION")
	for _, l := range ls {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t%d\t%d\t%s\n",
			l.ID, l.ISBN, l.Price, l.Condition, l.Subject, l.Semester, l.Edition, l.Location)
	}
	return tw.Flush()
}

func writeListing(w io.Writer, l listings.Listing) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Listing:\t%d\n", l.ID)
	fmt.Fprintf(tw, "ISBN:\t%s\n", l.ISBN)
	fmt.Fprintf(tw, "Price:\t%.2f\n", l.Price)
	fmt.Fprintf(tw, "Condition:\t%s\n", l.Condition)
	fmt.Fprintf(tw, "Subject:\t%s (semester %d, edition %d)\n", l.Subject, l.Semester, l.Edition)
	fmt.Fprintf(tw, "Location:\t%s\n", l.Location)
	if l.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", l.Description)
	}
	for _, img := range l.Images {
		fmt.Fprintf(tw, "Image:\t%s\n", img)
	}
	return tw.Flush()
}

func writeBookInfo(w io.Writer, info isbn.BookInfo) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ISBN:\t%s\n", info.ISBN)
	fmt.Fprintf(tw, "Title:\t%s\n", info.Title)
	fmt.Fprintf(tw, "Authors:\t%s\n", strings.Join(info.Authors, ", "))
	if info.PublishDate != "" {
		fmt.Fprintf(tw, "Published:\t%s\n", info.PublishDate)
	}
	if len(info.Publishers) > 0 {
		fmt.Fprintf(tw, "Publishers:\t%s\n", strings.Join(info.Publishers, ", "))
	}
	if info.NumberOfPages > 0 {
		fmt.Fprintf(tw, "Pages:\t%d\n", info.NumberOfPages)
	}
	return tw.Flush()
}
