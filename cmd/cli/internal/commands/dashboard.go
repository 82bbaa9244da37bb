package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

// DashboardCmd shows record totals.
type DashboardCmd struct {
	Watch    bool          `help:"Refresh periodically" default:"false"`
	Interval time.Duration `help:"Refresh interval when watching" default:"5s"`
}

func (d *DashboardCmd) Run(ctx context.Context, globals *Globals) error {
	if d.Watch && d.Interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s: must be greater than zero", d.Interval)
	}

	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/"); err != nil {
		return err
	}

	if d.Watch {
		return d.watch(ctx, a)
	}

	return d.show(ctx, a)
}

func (d *DashboardCmd) show(ctx context.Context, a *app) error {
	counts, err := a.resources.DashboardCounts(ctx)
	if err != nil {
		return explain(err)
	}

	if identity := a.session.CurrentIdentity(); identity != nil {
		fmt.Fprintf(a.out, "Welcome, %s\n\n", identity.Name)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDS\tTOTAL")
	fmt.Fprintf(w, "Candidates\t%d\n", counts.Candidates)
	fmt.Fprintf(w, "Employees\t%d\n", counts.Employees)
	fmt.Fprintf(w, "Attendance\t%d\n", counts.Attendance)
	fmt.Fprintf(w, "Leaves\t%d\n", counts.Leaves)

	return w.Flush()
}

func (d *DashboardCmd) watch(ctx context.Context, a *app) error {
	fmt.Fprintln(a.out, "Watching dashboard (press Ctrl+C to stop)...")
	fmt.Fprintln(a.out)

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	if err := d.show(ctx, a); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// a 401 expires the session, there is nothing left to watch
			if !a.session.State().Authenticated() {
				return errNotLoggedIn
			}

			fmt.Fprint(a.out, "\033[2J\033[H")
			fmt.Fprintf(a.out, "Dashboard (updated at %s)\n\n", time.Now().Format("15:04:05"))

			if err := d.show(ctx, a); err != nil {
				fmt.Fprintf(a.out, "Error updating dashboard: %v\n", err)
			}
		}
	}
}
