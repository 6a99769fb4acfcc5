package beancount

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountColumn is where posting amounts are right-aligned to.
const amountColumn = 60

// Format formats an entry as Beancount text, ending with a newline.
// Entries marked as duplicates are commented out with "; ".
func Format(entry Entry) string {
	var s string
	var meta Metadata
	switch e := entry.(type) {
	case Transaction:
		s, meta = formatTransaction(e), e.Meta
	case *Transaction:
		s, meta = formatTransaction(*e), e.Meta
	case Balance:
		s, meta = formatBalance(e), e.Meta
	case *Balance:
		s, meta = formatBalance(*e), e.Meta
	case Note:
		s, meta = formatNote(e), e.Meta
	case *Note:
		s, meta = formatNote(*e), e.Meta
	default:
		return fmt.Sprintf("; unsupported entry %T\n", entry)
	}

	if meta.Duplicate {
		return commentOut(s)
	}
	return s
}

// WriteEntries writes entries separated by blank lines, framed by blank
// lines the way bean-extract output is.
func WriteEntries(w io.Writer, entries []Entry) error {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString(Format(e))
		sb.WriteString("\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return nil
}

func formatTransaction(txn Transaction) string {
	var sb strings.Builder

	flag := txn.Flag
	if flag == "" {
		flag = FlagOK
	}

	// Transaction header
	sb.WriteString(txn.Date.Format(DateLayout))
	sb.WriteString(" ")
	sb.WriteString(flag)
	if txn.Payee != "" {
		sb.WriteString(" ")
		sb.WriteString(quote(txn.Payee))
	}
	sb.WriteString(" ")
	sb.WriteString(quote(txn.Narration))
	for _, tag := range txn.Tags {
		sb.WriteString(" #")
		sb.WriteString(tag)
	}
	for _, link := range txn.Links {
		sb.WriteString(" ^")
		sb.WriteString(link)
	}
	sb.WriteString("\n")

	writeMetadata(&sb, txn.Meta)

	// Postings
	for _, posting := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		if posting.Amount != nil {
			number := formatNumber(posting.Amount.Number)
			spaces := max(2, amountColumn-len(posting.Account)-len(number))
			sb.WriteString(strings.Repeat(" ", spaces))
			sb.WriteString(number)
			sb.WriteString(" ")
			sb.WriteString(posting.Amount.Currency)
		}

		if posting.Comment != "" {
			sb.WriteString(" ; ")
			sb.WriteString(posting.Comment)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatBalance(b Balance) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s balance %s %s %s\n",
		b.Date.Format(DateLayout), b.Account, formatNumber(b.Amount.Number), b.Amount.Currency)
	writeMetadata(&sb, b.Meta)
	return sb.String()
}

func formatNote(n Note) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s note %s %s\n", n.Date.Format(DateLayout), n.Account, quote(n.Comment))
	writeMetadata(&sb, n.Meta)
	return sb.String()
}

// writeMetadata writes the extra metadata keys in sorted order.
func writeMetadata(sb *strings.Builder, meta Metadata) {
	keys := make([]string, 0, len(meta.Extra))
	for k := range meta.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %s\n", k, quote(meta.Extra[k]))
	}
}

// formatNumber prints at least two decimal places without dropping precision.
func formatNumber(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}

func quote(s string) string {
	return strconv.Quote(s)
}

func commentOut(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "; " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
