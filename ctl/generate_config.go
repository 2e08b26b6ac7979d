// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/featurebasedb/recordimport/errors"
	"github.com/pelletier/go-toml"
)

// GenerateConfigCommand represents a command for printing a default config.
type GenerateConfigCommand struct {
	*CmdIO
}

// NewGenerateConfigCommand returns a new instance of GenerateConfigCommand.
func NewGenerateConfigCommand(stdin io.Reader, stdout, stderr io.Writer) *GenerateConfigCommand {
	return &GenerateConfigCommand{
		CmdIO: NewCmdIO(stdin, stdout, stderr),
	}
}

// Run prints out the default config.
func (cmd *GenerateConfigCommand) Run(_ context.Context) error {
	conf := NewImportCommand(nil, nil, nil)
	ret, err := toml.Marshal(*conf)
	if err != nil {
		return errors.Wrap(err, "marshalling default config")
	}
	fmt.Fprintf(cmd.Stdout, "%s\n", ret)
	return nil
}
