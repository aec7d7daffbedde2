// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// mock_cmd.go - Runs the in-memory development backend.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jeranaias/studyhall/internal/mockapi"
)

// DefaultMockAddr is where mock-server listens by default.
const DefaultMockAddr = ":8787"

// RunMockServer executes "studyhall mock-server" until ctx is cancelled.
func RunMockServer(ctx context.Context, p *ArgParser, verbose bool, out io.Writer) error {
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := p.FlagOrDefault("addr", DefaultMockAddr)
	opts := mockapi.Options{
		Token:         p.Flag("token"),
		DisableDelete: p.BoolFlag("no-delete"),
		Seed:          !p.BoolFlag("empty"),
	}
	if size := p.Flag("page-size"); size != "" {
		n, err := ParseIntWithValidation(size, "--page-size")
		if err != nil {
			return err
		}
		opts.PageSize = n
	}

	fmt.Fprintf(out, "%s mock backend on %s (API root http://localhost%s/api)\n",
		SuccessStyle.Render("Serving"), addr, addr)
	if opts.Token == "" {
		fmt.Fprintln(out, DimStyle.Render("Any bearer token is accepted. Press Ctrl+C to stop."))
	} else {
		fmt.Fprintln(out, DimStyle.Render("Only the configured token is accepted. Press Ctrl+C to stop."))
	}

	return mockapi.New(opts).ListenAndServe(ctx, addr)
}
