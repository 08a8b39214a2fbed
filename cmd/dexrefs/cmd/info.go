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
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	dexcmd "github.com/kiwibrowser/android-sub011/internal/commands/dex"
	"github.com/kiwibrowser/android-sub011/internal/colors"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/kiwibrowser/android-sub011/pkg/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	colorHeader = colors.BoldHiCyan().SprintFunc()
	colorField  = colors.Bold().SprintFunc()
	colorFaint  = colors.Faint().SprintFunc()
)

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	viper.BindPFlag("info.json", infoCmd.Flags().Lookup("json"))
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:     "info <DEX>",
	Aliases: []string{"i"},
	Short:   "Display DEX header, map list and item counts",
	Args:    cobra.ExactArgs(1),
	Example: heredoc.Doc(`
		# Show the header and sections of a dex file
		❯ dexrefs info classes.dex

		# As JSON
		❯ dexrefs info classes.dex --json | jq .sections`),
	RunE: func(cmd *cobra.Command, args []string) error {

		image, d, err := dexcmd.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		info := dexcmd.GetInfo(image, d)

		if viper.GetBool("info.json") {
			return printJSON(info)
		}

		checksum := colors.Pass().Sprint("✓")
		if !info.ChecksumOK {
			checksum = colors.Fail().Sprint("✗ (mismatch)")
		}
		fmt.Println(colorHeader(info.Format))
		fmt.Printf("  %s %s (%d bytes)\n", colorField("File Size:"), humanize.Bytes(uint64(info.FileSize)), info.FileSize)
		fmt.Printf("  %s  %#08x %s\n", colorField("Checksum:"), info.Checksum, checksum)
		fmt.Printf("  %s %s\n", colorField("Signature:"), colorFaint(info.Signature))

		fmt.Println()
		fmt.Println(colorHeader("Map List"))
		tbl := table.NewAutoTable(viper.GetBool("color"))
		tbl.SetHeaders("Type", "Code", "Offset", "Count")
		tbl.SetColumnAlignment(2, lipgloss.Right)
		tbl.SetColumnAlignment(3, lipgloss.Right)
		for _, s := range info.Sections {
			tbl.AppendRow(s.Type, fmt.Sprintf("%#04x", s.Code), fmt.Sprintf("%#x", s.Offset), humanize.Comma(int64(s.Count)))
		}
		fmt.Println(tbl.Render())

		fmt.Println()
		fmt.Println(colorHeader("Items"))
		c := info.Counts
		for _, row := range []struct {
			name  string
			count int
		}{
			{"Code Items", c.CodeItems},
			{"Type List Entries", c.TypeItems},
			{"Annotation Set Refs", c.AnnotationSetRefs},
			{"Annotation Offsets", c.AnnotationOffs},
			{"Annotations Directories", c.AnnotationsDirs},
			{"Field Annotations", c.FieldAnnotations},
			{"Method Annotations", c.MethodAnnotations},
			{"Parameter Annotations", c.ParameterAnnotations},
		} {
			fmt.Printf("  %s%s%s\n", colorField(row.name+":"), utils.Pad(24-len(row.name)), humanize.Comma(int64(row.count)))
		}

		return nil
	},
}
