package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/common/log"
)

type pluginOptions struct {
	scrapeURI   string
	timeout     time.Duration
	stateFile   string
	dirtyConfig bool
	config      bool
}

// runPlugin performs a single munin plugin invocation and returns the exit
// code. A config run without dirty config support prints no values and exits
// with 1 so munin follows up with a fetch.
func runPlugin(ctx context.Context, opts pluginOptions, w io.Writer) (int, error) {
	f := newFetcher(opts.scrapeURI, opts.timeout, http.DefaultTransport)
	snap, _ := poll(ctx, f)

	prev, err := loadState(opts.stateFile)
	if err != nil && !errors.Is(err, errNoState) {
		log.Debugln("No usable baseline:", err)
	}

	tree, complete := reconcile(snap, prev)
	if complete {
		err := saveState(opts.stateFile, tree)
		if err != nil && !errors.Is(err, errNoState) {
			return 1, fmt.Errorf("writing state file: %w", err)
		}
	}

	if opts.config {
		if err := writeConfig(w, tree); err != nil {
			return 1, err
		}
	}
	if opts.dirtyConfig || !opts.config {
		if err := writeValues(w, tree); err != nil {
			return 1, err
		}
		return 0, nil
	}
	return 1, nil
}
