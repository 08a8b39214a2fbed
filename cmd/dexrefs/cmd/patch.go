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
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	dexcmd "github.com/kiwibrowser/android-sub011/internal/commands/dex"
	"github.com/kiwibrowser/android-sub011/internal/config"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(patchCmd)

	patchCmd.Flags().StringP("output", "o", "", "Output file (default <DEX>.patched)")
	patchCmd.Flags().Bool("fix-checksum", true, "Recompute the header signature and checksum")
	patchCmd.Flags().BoolP("dry-run", "n", false, "Validate the edits without writing")
	patchCmd.Flags().BoolP("diff", "D", false, "Show a hex diff of the patched bytes")
	patchCmd.Flags().BoolP("json", "j", false, "Print the applied edits as JSON")
	patchCmd.MarkFlagFilename("output")
	viper.BindPFlag("patch.output", patchCmd.Flags().Lookup("output"))
	viper.BindPFlag("patch.fix_checksum", patchCmd.Flags().Lookup("fix-checksum"))
	viper.BindPFlag("patch.dry_run", patchCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("patch.diff", patchCmd.Flags().Lookup("diff"))
	viper.BindPFlag("patch.json", patchCmd.Flags().Lookup("json"))
}

// patchCmd represents the patch command
var patchCmd = &cobra.Command{
	Use:   "patch <DEX> <EDITS>",
	Short: "Retarget references listed in a YAML edits file",
	Args:  cobra.ExactArgs(2),
	Example: heredoc.Doc(`
		# edits.yaml:
		#   edits:
		#     - type: CodeToStringId16
		#       location: 0x2f6
		#       target: 0x8c
		❯ dexrefs patch classes.dex edits.yaml -o classes.patched.dex

		# Check that the edits apply without writing anything
		❯ dexrefs patch classes.dex edits.yaml --dry-run

		# Show which bytes change
		❯ dexrefs patch classes.dex edits.yaml --dry-run --diff`),
	RunE: func(cmd *cobra.Command, args []string) error {

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}

		dexPath := filepath.Clean(args[0])
		output := viper.GetString("patch.output")
		if output == "" {
			output = dexPath + ".patched"
		}

		ef, err := dexcmd.ReadEdits(filepath.Clean(args[1]))
		if err != nil {
			return err
		}
		image, d, err := dexcmd.Open(dexPath)
		if err != nil {
			return err
		}

		var orig []byte
		if viper.GetBool("patch.diff") {
			orig = bytes.Clone(image)
		}

		old, err := dexcmd.ApplyEdits(image, d, ef.Edits, conf.Patch.FixChecksum)
		if err != nil {
			return errors.Wrapf(err, "failed to patch %s", dexPath)
		}

		if viper.GetBool("patch.json") {
			type applied struct {
				Type     string `json:"type"`
				Location uint32 `json:"location"`
				Old      uint32 `json:"old_target"`
				New      uint32 `json:"new_target"`
			}
			out := make([]applied, len(ef.Edits))
			for i, e := range ef.Edits {
				out[i] = applied{Type: old[i].Type, Location: e.Location, Old: old[i].Target, New: e.Target}
			}
			if err := printJSON(out); err != nil {
				return err
			}
		} else {
			tbl := table.NewAutoTable(viper.GetBool("color"))
			tbl.SetHeaders("Type", "Location", "Old Target", "New Target")
			for i, e := range ef.Edits {
				tbl.AppendRow(old[i].Type, fmt.Sprintf("%#x", e.Location), fmt.Sprintf("%#x", old[i].Target), fmt.Sprintf("%#x", e.Target))
			}
			fmt.Println(tbl.Render())
		}

		if orig != nil {
			if err := printHighlighted(dexcmd.DiffEdits(orig, image, ef.Edits), "diff"); err != nil {
				return err
			}
		}

		if viper.GetBool("patch.dry_run") {
			log.Info("Dry run, not writing output")
			return nil
		}
		if err := os.WriteFile(output, image, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", output)
		}
		utils.Indent(log.Info, 2)(fmt.Sprintf("Created %s", output))
		if !conf.Patch.FixChecksum {
			log.Warn("Header checksums were not updated (--fix-checksum=false)")
		}

		return nil
	},
}
