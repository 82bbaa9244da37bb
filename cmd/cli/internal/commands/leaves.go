package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/hrms/internal/models"
)

// LeavesCmd manages leave requests.
type LeavesCmd struct {
	List    LeavesListCmd   `cmd:"" default:"withargs" help:"List leave requests"`
	Add     LeavesAddCmd    `cmd:"" help:"File a leave request"`
	Approve LeavesApproveCmd `cmd:"" help:"Approve a pending leave"`
	Reject  LeavesRejectCmd  `cmd:"" help:"Reject a pending leave"`
}

// LeavesListCmd lists leave requests.
type LeavesListCmd struct {
	Search string `help:"Filter by employee name"`
	Status string `help:"Filter by status"`
}

func (l *LeavesListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/leaves"); err != nil {
		return err
	}

	leaves, err := a.resources.ListLeaves(ctx, models.LeaveFilter{Search: l.Search, Status: l.Status})
	if err != nil {
		return explain(err)
	}

	if len(leaves) == 0 {
		fmt.Fprintln(a.out, "No leave requests found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tTYPE\tPERIOD\tSTATUS\tDOCS")
	for _, leave := range leaves {
		docs := "-"
		if leave.DocsURL != "" {
			docs = leave.DocsURL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			leave.ID, leave.Employee.DisplayName(), leave.Type, leave.Period(), leave.Status, docs)
	}

	return w.Flush()
}

// LeavesAddCmd files a leave request for an employee.
type LeavesAddCmd struct {
	Employee string `required:"" help:"Employee ID"`
	Type     string `help:"Leave type" enum:"Sick,Casual,Earned" default:"Casual"`
	Start    string `required:"" help:"First day (YYYY-MM-DD)"`
	End      string `required:"" help:"Last day (YYYY-MM-DD)"`
}

func (l *LeavesAddCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/leaves"); err != nil {
		return err
	}

	leave, err := a.resources.CreateLeave(ctx, models.NewLeave{
		Employee:  l.Employee,
		Type:      l.Type,
		StartDate: l.Start,
		EndDate:   l.End,
	})
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "Leave filed: %s %s (%s)\n", leave.Type, leave.Period(), leave.Status)
	return nil
}

// LeavesApproveCmd approves a leave.
type LeavesApproveCmd struct {
	ID string `arg:"" help:"Leave ID"`
}

func (l *LeavesApproveCmd) Run(ctx context.Context, globals *Globals) error {
	return updateLeaveStatus(ctx, globals, l.ID, models.LeaveApproved)
}

// LeavesRejectCmd rejects a leave.
type LeavesRejectCmd struct {
	ID string `arg:"" help:"Leave ID"`
}

func (l *LeavesRejectCmd) Run(ctx context.Context, globals *Globals) error {
	return updateLeaveStatus(ctx, globals, l.ID, models.LeaveRejected)
}

func updateLeaveStatus(ctx context.Context, globals *Globals, id, status string) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/leaves"); err != nil {
		return err
	}

	result, err := a.resources.UpdateLeaveStatus(ctx, id, status)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintln(a.out, result.Message)
	return nil
}
