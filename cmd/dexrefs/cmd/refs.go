/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	dexcmd "github.com/kiwibrowser/android-sub011/internal/commands/dex"
	"github.com/kiwibrowser/android-sub011/internal/colors"
	"github.com/kiwibrowser/android-sub011/internal/config"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/dex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	colorLocation = colors.Location().SprintFunc()
	colorTarget   = colors.Target().SprintFunc()
	colorRefType  = colors.RefType().SprintFunc()

	refsLo, refsHi offsetFlag
)

func init() {
	rootCmd.AddCommand(refsCmd)

	refsCmd.Flags().StringSliceP("type", "t", nil, "Reference types to list (default all)")
	refsCmd.Flags().VarP(&refsLo, "lo", "l", "Start of the byte window")
	refsCmd.Flags().VarP(&refsHi, "hi", "e", "End of the byte window (default end of file)")
	refsCmd.Flags().Uint32P("window", "w", config.DefaultWindow, "Read in chunks of this many bytes")
	refsCmd.Flags().IntP("workers", "p", 0, "Reference types read in parallel (default NumCPU)")
	refsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	refsCmd.Flags().BoolP("yaml", "y", false, "Output as YAML")
	refsCmd.Flags().BoolP("dump", "d", false, "Hexdump the window with references highlighted")
	refsCmd.Flags().Bool("types", false, "List reference types and exit")
	refsCmd.MarkFlagsMutuallyExclusive("json", "yaml", "dump")
	viper.BindPFlag("refs.type", refsCmd.Flags().Lookup("type"))
	viper.BindPFlag("refs.window", refsCmd.Flags().Lookup("window"))
	viper.BindPFlag("refs.workers", refsCmd.Flags().Lookup("workers"))
	viper.BindPFlag("refs.json", refsCmd.Flags().Lookup("json"))
	viper.BindPFlag("refs.yaml", refsCmd.Flags().Lookup("yaml"))
	viper.BindPFlag("refs.dump", refsCmd.Flags().Lookup("dump"))
	viper.BindPFlag("refs.types", refsCmd.Flags().Lookup("types"))
}

func parseTypes(names []string) ([]dex.ReferenceType, error) {
	var types []dex.ReferenceType
	for _, name := range names {
		t, err := dex.ReferenceTypeFromString(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func printTypes() {
	for t := dex.ReferenceType(0); t < dex.NumTypes; t++ {
		fmt.Printf("%-48s %-22s %d\n", t, t.Pool(), t.Width())
	}
}

// refsCmd represents the refs command
var refsCmd = &cobra.Command{
	Use:     "refs <DEX>",
	Aliases: []string{"r", "xrefs"},
	Short:   "List the cross-references of a DEX file",
	Args: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("refs.types") {
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Example: heredoc.Doc(`
		# List every reference
		❯ dexrefs refs classes.dex

		# Only string references made by code, as JSON
		❯ dexrefs refs classes.dex -t CodeToStringId16,CodeToStringId32 --json

		# References encoded in a byte window, with a highlighted hexdump
		❯ dexrefs refs classes.dex --lo 0x70 --hi 0x200 --dump

		# Enumerate in 4KB chunks the way a patcher would
		❯ dexrefs refs classes.dex --window 4096

		# Show the reference types
		❯ dexrefs refs --types`),
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("refs.types") {
			printTypes()
			return nil
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		types, err := parseTypes(viper.GetStringSlice("refs.type"))
		if err != nil {
			return err
		}
		lo, hi := uint32(refsLo), uint32(refsHi)

		image, d, err := dexcmd.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		refs, err := dexcmd.CollectReferences(ctx, d, dexcmd.RefsOptions{
			Types:   types,
			Lo:      lo,
			Hi:      hi,
			Window:  conf.Refs.Window,
			Workers: conf.Refs.Workers,
		})
		if err != nil {
			return errors.Wrap(err, "failed to read references")
		}

		switch {
		case viper.GetBool("refs.json"):
			return printJSON(refs)
		case viper.GetBool("refs.yaml"):
			return printYAML(refs)
		case viper.GetBool("refs.dump"):
			if hi == 0 || hi > d.Size() {
				hi = d.Size()
			}
			fmt.Print(utils.HexDumpSpans(image[lo:hi], lo, dexcmd.Spans(refs)))
		default:
			var total int
			for _, tr := range refs {
				if len(tr.References) == 0 {
					continue
				}
				total += len(tr.References)
				fmt.Printf("%s %s\n", colorRefType(tr.Type), colorFaint(fmt.Sprintf("(%s, %d bytes)", tr.Pool, tr.Width)))
				for _, r := range tr.References {
					fmt.Printf("    %s -> %s\n", colorLocation(fmt.Sprintf("%#08x", r.Location)), colorTarget(fmt.Sprintf("%#08x", r.Target)))
				}
			}
			log.Infof("Found %s references", humanize.Comma(int64(total)))
		}

		return nil
	},
}
