package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/wolfeidau/hrms/internal/models"
)

// CandidatesCmd manages job applicants.
type CandidatesCmd struct {
	List CandidatesListCmd `cmd:"" default:"withargs" help:"List candidates"`
	Add  CandidatesAddCmd  `cmd:"" help:"Add a candidate"`
	Move CandidatesMoveCmd `cmd:"" help:"Move a candidate to employees"`
}

// CandidatesListCmd lists candidates.
type CandidatesListCmd struct {
	Search string `help:"Filter by name, email or position"`
}

func (c *CandidatesListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/candidates"); err != nil {
		return err
	}

	candidates, err := a.resources.ListCandidates(ctx, models.CandidateFilter{Search: c.Search})
	if err != nil {
		return explain(err)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(a.out, "No candidates found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tPOSITION\tRESUME")
	for _, cand := range candidates {
		resume := "-"
		if cand.ResumeURL != "" {
			resume = cand.ResumeURL
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", cand.ID, cand.Name, cand.Email, cand.Phone, cand.Position, resume)
	}

	return w.Flush()
}

// CandidatesAddCmd adds a candidate, optionally with a resume.
type CandidatesAddCmd struct {
	Name     string `required:"" help:"Full name"`
	Email    string `required:"" help:"Email address"`
	Phone    string `required:"" help:"Phone number"`
	Position string `help:"Position applied for"`
	Resume   string `help:"Path to a PDF resume" type:"existingfile"`
}

func (c *CandidatesAddCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/candidates"); err != nil {
		return err
	}

	in := models.NewCandidate{
		Name:     c.Name,
		Email:    models.NormalizeEmail(c.Email),
		Phone:    c.Phone,
		Position: c.Position,
	}
	if c.Resume != "" {
		f, err := os.Open(c.Resume)
		if err != nil {
			return fmt.Errorf("failed to open resume: %w", err)
		}
		defer f.Close()

		in.Resume = f
		in.ResumeName = filepath.Base(c.Resume)
	}

	created, err := a.resources.CreateCandidate(ctx, in)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(a.out, "Candidate added: %s (%s)\n", created.Name, created.ID)
	return nil
}

// CandidatesMoveCmd promotes a candidate to an employee.
type CandidatesMoveCmd struct {
	ID string `arg:"" help:"Candidate ID"`
}

func (c *CandidatesMoveCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.screen(ctx, "/candidates"); err != nil {
		return err
	}

	result, err := a.resources.MoveCandidateToEmployee(ctx, c.ID)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintln(a.out, result.Message)
	return nil
}
