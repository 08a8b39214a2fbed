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
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/briandowns/spinner"
	"github.com/caarlos0/ctrlc"
	"github.com/fatih/color"
	dexcmd "github.com/kiwibrowser/android-sub011/internal/commands/dex"
	"github.com/kiwibrowser/android-sub011/internal/colors"
	"github.com/kiwibrowser/android-sub011/internal/config"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	verifyCmd.Flags().BoolP("failed", "f", false, "Only show failing reference types")
	viper.BindPFlag("verify.json", verifyCmd.Flags().Lookup("json"))
	viper.BindPFlag("verify.failed", verifyCmd.Flags().Lookup("failed"))
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <DEX>",
	Short: "Check checksums, reference ordering, windowing and write round-trips",
	Long: heredoc.Doc(`
		Verify reads every reference type over the whole file and checks that
		references are ascending and non-overlapping with targets inside the
		file, that reading in windows (refs.window, or 29 bytes when unset)
		gives the same references as a single pass, and that writing each
		reference back with its own target leaves the file unchanged.`),
	Args: cobra.ExactArgs(1),
	Example: heredoc.Doc(`
		# Check a dex file
		❯ dexrefs verify classes.dex

		# Check with 4KB windows, reporting failures only
		❯ DEXREFS_REFS_WINDOW=4096 dexrefs verify classes.dex --failed`),
	RunE: func(cmd *cobra.Command, args []string) error {

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}

		image, d, err := dexcmd.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var report *dexcmd.VerifyReport
		if err := ctrlc.Default.Run(ctx, func() error {
			if !viper.GetBool("verify.json") && table.IsTerminal() {
				s := spinner.New(spinner.CharSets[38], 100*time.Millisecond)
				s.Prefix = color.BlueString("   • Verifying... ")
				s.Start()
				defer s.Stop()
			}
			r, err := dexcmd.Verify(ctx, image, d, conf.Refs.Window, conf.Refs.Workers)
			report = r
			return err
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				log.Warn("Exiting...")
				cancel()
				return nil
			}
			return errors.Wrap(err, "failed to verify references")
		}

		if viper.GetBool("verify.json") {
			if err := printJSON(report); err != nil {
				return err
			}
		} else {
			if report.Checksum != "" {
				fmt.Printf("%s %s\n", colors.Fail().Sprint("✗"), report.Checksum)
			} else {
				fmt.Printf("%s checksum and signature\n", colors.Pass().Sprint("✓"))
			}
			for _, c := range report.Types {
				if c.OK() {
					if !viper.GetBool("verify.failed") {
						fmt.Printf("%s %s %s\n", colors.Pass().Sprint("✓"), colorRefType(c.Type), colorFaint(fmt.Sprintf("(%d)", c.Count)))
					}
					continue
				}
				fmt.Printf("%s %s %s\n", colors.Fail().Sprint("✗"), colorRefType(c.Type), colorFaint(fmt.Sprintf("(%d)", c.Count)))
				for _, f := range c.Failures {
					utils.Indent(log.Warn, 2)(f)
				}
			}
		}

		if !report.OK() {
			return fmt.Errorf("%s failed verification", args[0])
		}
		return nil
	},
}
