// hserdump prints the records held in a preset store.
//
// Without names it dumps every record. Slots of record types that this binary
// does not know are printed with their hashes but without member labels.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/andreyvit/hser"
	"github.com/andreyvit/hser/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, w io.Writer) error {
	var (
		dbPath     string
		namesOnly  bool
		payloads   bool
		external   bool
		visibility string
	)
	flagSet := pflag.NewFlagSet("hserdump", pflag.ContinueOnError)
	flagSet.StringVar(&dbPath, "db", "presets.db", "path to the preset store")
	flagSet.BoolVar(&namesOnly, "names", false, "only list record names")
	flagSet.BoolVar(&payloads, "payloads", false, "print slot payloads")
	flagSet.BoolVar(&external, "external", false, "print external asset tables")
	flagSet.StringVar(&visibility, "visibility", "public", "member visibility used to label slots")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	vis, err := hser.ParseVisibility(visibility)
	if err != nil {
		return err
	}

	s, err := store.Open(dbPath, store.Options{
		ReadOnly: true,
		Resolver: store.RefResolver,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	names := flagSet.Args()
	if len(names) == 0 {
		names, err = s.Names()
		if err != nil {
			return err
		}
	}

	if namesOnly {
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
		return nil
	}

	flags := hser.DumpHeader | hser.DumpSlots
	if payloads {
		flags |= hser.DumpPayloads
	}
	if external {
		flags |= hser.DumpExternal
	}
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n%s", name, hser.Dump(rec, vis, flags))
	}
	return nil
}
