// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"errors"
	"fmt"
	"strings"
)

// CfgsFlag allows passing a list of configuration files to the same flag and
// provides parsing utilities.
type CfgsFlag []string

// String correctly converts the flag values into a string which is required to
// parse them afterwards.
func (cfgs *CfgsFlag) String() string {
	return fmt.Sprint(*cfgs)
}

// Set is used by flag.Parse to correctly parse the command line arguments.
func (cfgs *CfgsFlag) Set(value string) error {
	if len(*cfgs) > 0 {
		return errors.New("configs flag were already set")
	}
	for _, cfg := range strings.Split(value, ",") {
		cfg = strings.TrimSpace(cfg)
		*cfgs = append(*cfgs, cfg)
	}
	return nil
}

// StringsFlag collects all values of a flag that is passed multiple times,
// e.g. "-pass=a -pass=b". The order of values is preserved.
type StringsFlag []string

func (vals *StringsFlag) String() string {
	return strings.Join(*vals, " ")
}

func (vals *StringsFlag) Set(value string) error {
	if value == "" {
		return errors.New("empty value")
	}
	*vals = append(*vals, value)
	return nil
}
