package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/hrms/internal/models"
)

// AttendanceCmd tracks daily attendance.
type AttendanceCmd struct {
	List AttendanceListCmd `cmd:"" default:"withargs" help:"List attendance records"`
	Mark AttendanceMarkCmd `cmd:"" help:"Mark attendance for an employee"`
}

// AttendanceListCmd lists attendance records.
type AttendanceListCmd struct {
	Employee string `help:"Filter by employee ID"`
	Date     string `help:"Filter by day (YYYY-MM-DD)"`
	Status   string `help:"Filter by status"`
}

func (c *AttendanceListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/attendance"); err != nil {
		return err
	}

	records, err := a.resources.ListAttendance(ctx, models.AttendanceFilter{
		Employee: c.Employee,
		Date:     c.Date,
		Status:   c.Status,
	})
	if err != nil {
		return explain(err)
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No attendance records found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tDATE\tSTATUS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ID, rec.Employee.DisplayName(), rec.Day(), rec.Status)
	}

	return w.Flush()
}

// AttendanceMarkCmd records attendance.
type AttendanceMarkCmd struct {
	Employee string `required:"" help:"Employee ID"`
	Date     string `help:"Day (YYYY-MM-DD), defaults to today"`
	Status   string `help:"Attendance status" enum:"Present,Absent,Half-Day" default:"Present"`
}

func (c *AttendanceMarkCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/attendance"); err != nil {
		return err
	}

	date := c.Date
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	rec, err := a.resources.MarkAttendance(ctx, models.NewAttendance{
		Employee: c.Employee,
		Date:     date,
		Status:   c.Status,
	})
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "Attendance marked: %s %s\n", date, rec.Status)
	return nil
}
