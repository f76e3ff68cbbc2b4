package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	godbf "github.com/Ulysses-Xu/go-dbf/v2"
)

const version = "2.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "--version" || cmd == "-version" {
		fmt.Printf("dbfutil %s - dBASE/FoxPro table utility\n", version)
		return
	}
	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		printUsage()
		return
	}

	switch cmd {
	case "info":
		cmdInfo(os.Args[2:])
	case "dump":
		cmdDump(os.Args[2:])
	case "memo":
		cmdMemo(os.Args[2:])
	case "delete":
		cmdDelete(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dbfutil %s - dBASE/FoxPro table utility

Usage: dbfutil <command> [options] <table.dbf>

Commands:
  info      Print the header and field descriptors
  dump      Print records
  memo      List the blocks of the memo file
  delete    Mark records deleted, or restore them with -undo

Global Options:
  -encoding NAME  Charset of text fields (default: from the header)
  -v              Verbose logging

Examples:
  dbfutil info data/orders.dbf
  dbfutil dump -json -n 10 data/orders.dbf
  dbfutil dump -deleted -encoding gbk data/orders.dbf
  dbfutil memo data/notes.dbf
  dbfutil delete 3 7 data/orders.dbf
`, version)
}

func addGlobalFlags(fs *flag.FlagSet) (*string, *bool) {
	encoding := fs.String("encoding", "", "Charset of text fields")
	verbose := fs.Bool("v", false, "Verbose logging")
	return encoding, verbose
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func openTable(fs *flag.FlagSet, encoding string, verbose bool) *godbf.Table {
	if fs.NArg() == 0 {
		fatalf("table path required")
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	opts := []godbf.Option{godbf.WithLogger(log.WithField("table", fs.Arg(fs.NArg()-1)))}
	if encoding != "" {
		opts = append(opts, godbf.WithEncodingName(encoding))
	}
	t, err := godbf.OpenFile(fs.Arg(fs.NArg()-1), opts...)
	if err != nil {
		fatalf("opening %s: %v", fs.Arg(fs.NArg()-1), err)
	}
	return t
}

// cmdInfo prints the header and descriptors.
func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	encoding, verbose := addGlobalFlags(fs)
	fs.Parse(args)

	t := openTable(fs, *encoding, *verbose)
	defer t.Close()

	h := t.Header()
	fmt.Printf("  Version:      0x%02X %s\n", byte(h.Version), h.Version)
	fmt.Printf("  Last update:  %s\n", h.LastUpdate.Format("2006-01-02"))
	fmt.Printf("  Records:      %d\n", h.RecordCount)
	fmt.Printf("  Header:       %d bytes\n", h.HeaderLength)
	fmt.Printf("  Record:       %d bytes\n", h.RecordLength)
	fmt.Printf("  Flags:        0x%02X\n", byte(h.Flags))
	fmt.Printf("  Code page:    0x%02X\n", h.LanguageDriver)
	if m := t.Memo(); m != nil {
		fmt.Printf("  Memo:         %s, %d byte blocks, next block %d\n", m.Format(), m.BlockLength(), m.NextIndex())
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tTYPE\tLEN\tDEC\tOFFSET\tFLAGS")
	for i, f := range t.Fields() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t0x%02X\n", i, f.Name, f.Type, f.Length, f.Decimals, f.Offset, byte(f.Flags))
	}
	w.Flush()
}

// cmdDump prints records as a table or as JSON lines.
func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	encoding, verbose := addGlobalFlags(fs)
	asJSON := fs.Bool("json", false, "Print one JSON object per record")
	deleted := fs.Bool("deleted", false, "Include deleted records")
	limit := fs.Int("n", 0, "Stop after N records (0 = all)")
	fs.Parse(args)

	t := openTable(fs, *encoding, *verbose)
	defer t.Close()
	fields := t.Fields()

	var w *tabwriter.Writer
	enc := json.NewEncoder(os.Stdout)
	if !*asJSON {
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		fmt.Fprintln(w, "#\tDEL\t"+strings.Join(names, "\t"))
	}

	printed := 0
	c := t.Cursor()
	var row godbf.Row
	for c.Next() {
		if c.Deleted() && !*deleted {
			continue
		}
		if err := c.Scan(&row); err != nil {
			fatalf("record %d: %v", c.Index(), err)
		}
		if *asJSON {
			obj := make(map[string]any, len(fields)+1)
			for i, f := range fields {
				obj[f.Name] = jsonValue(row[i])
			}
			obj["_deleted"] = c.Deleted()
			if err := enc.Encode(obj); err != nil {
				fatalf("%v", err)
			}
		} else {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.String()
			}
			del := ""
			if c.Deleted() {
				del = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", c.Index(), del, strings.Join(cells, "\t"))
		}
		printed++
		if *limit > 0 && printed >= *limit {
			break
		}
	}
	if w != nil {
		w.Flush()
	}
	if err := c.Err(); err != nil {
		fatalf("%v", err)
	}
}

func jsonValue(v godbf.Value) any {
	if m, ok := v.Currency(); ok {
		return m.Decimal()
	}
	return v.Interface()
}

// cmdMemo lists memo blocks.
func cmdMemo(args []string) {
	fs := flag.NewFlagSet("memo", flag.ExitOnError)
	encoding, verbose := addGlobalFlags(fs)
	width := fs.Int("width", 60, "Truncate previews to N characters")
	fs.Parse(args)

	t := openTable(fs, *encoding, *verbose)
	defer t.Close()
	m := t.Memo()
	if m == nil {
		fatalf("%s has no memo file", fs.Arg(fs.NArg()-1))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tTYPE\tSIZE\tPREVIEW")
	for index, rec := range m.Records() {
		preview := ""
		if rec.Type == godbf.MemoText {
			preview = strings.Join(strings.Fields(string(rec.Data)), " ")
			if len(preview) > *width {
				preview = preview[:*width] + "..."
			}
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", index, rec.Type, len(rec.Data), preview)
	}
	w.Flush()
}

// cmdDelete flips the deletion flag of the given records.
func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	encoding, verbose := addGlobalFlags(fs)
	undo := fs.Bool("undo", false, "Restore the records instead")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fatalf("record numbers and table path required")
	}
	t := openTable(fs, *encoding, *verbose)
	for _, a := range fs.Args()[:fs.NArg()-1] {
		index, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			t.Close()
			fatalf("invalid record number %q", a)
		}
		if err := t.SetDeleted(uint32(index), !*undo); err != nil {
			t.Close()
			fatalf("record %d: %v", index, err)
		}
	}
	if err := t.Close(); err != nil {
		fatalf("%v", err)
	}
}
