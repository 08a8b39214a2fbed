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
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/kiwibrowser/android-sub011/internal/colors"
	"github.com/kiwibrowser/android-sub011/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// offsetFlag is a uint32 flag that accepts decimal or hex.
type offsetFlag uint32

var _ pflag.Value = (*offsetFlag)(nil)

func (o *offsetFlag) String() string { return fmt.Sprintf("%#x", uint32(*o)) }

func (o *offsetFlag) Set(s string) error {
	v, err := utils.ConvertStrToUint32(s)
	if err != nil {
		return err
	}
	*o = offsetFlag(v)
	return nil
}

func (o *offsetFlag) Type() string { return "offset" }

// printJSON writes v as indented JSON, highlighted when colors are on.
func printJSON(v any) error {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal json")
	}
	return printHighlighted(string(dat)+"\n", "json")
}

// printYAML writes v as YAML, highlighted when colors are on.
func printYAML(v any) error {
	dat, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal yaml")
	}
	return printHighlighted(string(dat), "yaml")
}

func printHighlighted(s, lexer string) error {
	if colors.Enabled() {
		return quick.Highlight(os.Stdout, s, lexer, "terminal256", "nord")
	}
	_, err := fmt.Print(s)
	return err
}
