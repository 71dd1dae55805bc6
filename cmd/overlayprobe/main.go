// Command overlayprobe prints the signaling attributes attached to an
// overlay's render widget: whether it is marked, whether an explicit leave
// is pending, and how many pointer-leaves the filter has suppressed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"deskweb/internal/win"
	"deskweb/internal/winprop"
)

const defaultTitle = "DeskWeb Overlay"

// report is one reading of a widget's attributes.
type report struct {
	Widget               string `json:"widget"`
	Marked               bool   `json:"marked"`
	ExplicitLeavePending bool   `json:"explicit_leave_pending"`
	SuppressCount        uint64 `json:"suppress_count"`
}

func readReport(store winprop.Store, w win.HWND) (report, error) {
	r := report{Widget: w.String()}
	var err error
	if r.Marked, err = store.IsSet(w, winprop.TargetMarker); err != nil {
		return r, err
	}
	if r.ExplicitLeavePending, err = store.IsSet(w, winprop.ExplicitLeave); err != nil {
		return r, err
	}
	if r.SuppressCount, err = store.Value(w, winprop.SuppressCount); err != nil {
		return r, err
	}
	return r, nil
}

func writeReport(out io.Writer, r report, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(r)
	}
	_, err := fmt.Fprintf(out, "widget=%s marked=%t explicit_leave_pending=%t suppress_count=%d\n",
		r.Widget, r.Marked, r.ExplicitLeavePending, r.SuppressCount)
	return err
}

// parseHandle accepts "0x1A2B", "1a2b" or a decimal handle with a "#" prefix.
func parseHandle(s string) (win.HWND, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	var (
		v   uint64
		err error
	)
	if dec, ok := strings.CutPrefix(s, "#"); ok {
		v, err = strconv.ParseUint(dec, 10, 64)
	} else {
		v, err = strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	}
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return win.HWND(v), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("overlayprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", defaultTitle, "Title of the overlay window")
	handle := fs.String("hwnd", "", "Render widget handle in hex; overrides -title")
	asJSON := fs.Bool("json", false, "Print readings as JSON lines")
	clearAttrs := fs.Bool("clear", false, "Remove every overlay attribute from the widget and exit")
	watch := fs.Duration("watch", 0, "Keep printing readings at this interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		widget win.HWND
		err    error
	)
	if *handle != "" {
		widget, err = parseHandle(*handle)
	} else {
		widget, err = locateWidget(*title)
	}
	if err != nil {
		return err
	}

	store := newStore()

	if *clearAttrs {
		if err := winprop.ClearAll(store, widget); err != nil {
			return fmt.Errorf("clear attributes: %w", err)
		}
		fmt.Fprintf(stdout, "cleared overlay attributes from %s\n", widget)
		return nil
	}

	return probe(ctx, store, widget, *watch, stdout, *asJSON)
}

// probe prints one reading, or one per interval until ctx ends or the
// widget goes away.
func probe(ctx context.Context, store winprop.Store, widget win.HWND, interval time.Duration, out io.Writer, asJSON bool) error {
	for {
		r, err := readReport(store, widget)
		if err != nil {
			return err
		}
		if err := writeReport(out, r, asJSON); err != nil {
			return err
		}
		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "overlayprobe: %v\n", err)
		os.Exit(1)
	}
}
