package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/hrms/internal/models"
)

// EmployeesCmd shows staff records.
type EmployeesCmd struct {
	List EmployeesListCmd `cmd:"" default:"withargs" help:"List employees"`
}

// EmployeesListCmd lists employees.
type EmployeesListCmd struct {
	Search string `help:"Filter by name, email or role"`
	Status string `help:"Filter by employment status"`
}

func (e *EmployeesListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/employees"); err != nil {
		return err
	}

	employees, err := a.resources.ListEmployees(ctx, models.EmployeeFilter{Search: e.Search, Status: e.Status})
	if err != nil {
		return explain(err)
	}

	if len(employees) == 0 {
		fmt.Fprintln(a.out, "No employees found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, emp := range employees {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", emp.ID, emp.Name, emp.Email, emp.Role, emp.EmploymentStatus)
	}

	return w.Flush()
}
