package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/internal/models"
	"golang.org/x/sync/errgroup"
)

// listMaxTries bounds the retries of idempotent list reads.
const listMaxTries = 3

// Resources is the client for the HR record endpoints used by the dashboard
// screens. Writes return the created or updated record so the caller can
// decide whether to refresh its own view.
type Resources struct {
	api *api

	// OnUnauthorized is called when the server answers 401, i.e. the session
	// expired server side.
	OnUnauthorized func(op string)

	// RetryInitialInterval tunes the first backoff delay for list reads.
	RetryInitialInterval time.Duration
}

// NewResources creates a resource client sharing httpClient (and so its cookie
// jar) with the session client.
func NewResources(serverURL string, httpClient *http.Client) (*Resources, error) {
	a, err := newAPI(serverURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &Resources{api: a, RetryInitialInterval: 500 * time.Millisecond}, nil
}

// ActionResult is the reply to a write that only returns a message.
type ActionResult struct {
	Message string `json:"message"`
}

// ListCandidates returns candidates matching the filter.
func (r *Resources) ListCandidates(ctx context.Context, filter models.CandidateFilter) ([]models.Candidate, error) {
	return list[models.Candidate](ctx, r, "list candidates", "Failed to fetch candidates", filter.Query(), "candidates")
}

// CreateCandidate uploads a new candidate as a multipart form, including the
// resume when one is given.
func (r *Resources) CreateCandidate(ctx context.Context, in models.NewCandidate) (*models.Candidate, error) {
	const op = "create candidate"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"phone", in.Phone},
		{"position", in.Position},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.key, f.value); err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
	}

	if in.Resume != nil {
		name := in.ResumeName
		if name == "" {
			name = "resume.pdf"
		}
		part, err := mw.CreateFormFile("resume", filepath.Base(name))
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		if _, err := io.Copy(part, in.Resume); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read resume: %w", err)}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	resp, err := r.api.do(ctx, op, http.MethodPost, r.api.endpoint(nil, "candidates"), &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var created models.Candidate
	if err := r.decode(op, "Failed to add candidate", resp, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// MoveCandidateToEmployee promotes a candidate to an employee.
func (r *Resources) MoveCandidateToEmployee(ctx context.Context, id string) (*ActionResult, error) {
	const op = "move candidate"

	if id == "" {
		return nil, models.NewValidationError("candidate id is required")
	}

	resp, err := r.api.doJSON(ctx, op, http.MethodPost, r.api.endpoint(nil, "candidates", id, "move-to-employee"), nil)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{}
	if err := r.decode(op, "Failed to move candidate", resp, result); err != nil {
		return nil, err
	}
	if result.Message == "" {
		result.Message = "Candidate moved to Employees successfully"
	}

	return result, nil
}

// ListEmployees returns employees matching the filter.
func (r *Resources) ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	return list[models.Employee](ctx, r, "list employees", "Failed to fetch employees", filter.Query(), "employees")
}

// ListAttendance returns attendance records matching the filter.
func (r *Resources) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	return list[models.Attendance](ctx, r, "list attendance", "Failed to fetch attendance", filter.Query(), "attendance")
}

// MarkAttendance records attendance for an employee on a day.
func (r *Resources) MarkAttendance(ctx context.Context, in models.NewAttendance) (*models.Attendance, error) {
	const op = "mark attendance"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	resp, err := r.api.doJSON(ctx, op, http.MethodPost, r.api.endpoint(nil, "attendance"), in)
	if err != nil {
		return nil, err
	}

	var created models.Attendance
	if err := r.decode(op, "Failed to mark attendance", resp, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// ListLeaves returns leave requests matching the filter.
func (r *Resources) ListLeaves(ctx context.Context, filter models.LeaveFilter) ([]models.Leave, error) {
	return list[models.Leave](ctx, r, "list leaves", "Failed to fetch leaves", filter.Query(), "leaves")
}

// CreateLeave files a leave request.
func (r *Resources) CreateLeave(ctx context.Context, in models.NewLeave) (*models.Leave, error) {
	const op = "create leave"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	resp, err := r.api.doJSON(ctx, op, http.MethodPost, r.api.endpoint(nil, "leaves"), in)
	if err != nil {
		return nil, err
	}

	var created models.Leave
	if err := r.decode(op, "Failed to add leave", resp, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateLeaveStatus approves or rejects a leave request.
func (r *Resources) UpdateLeaveStatus(ctx context.Context, id, status string) (*ActionResult, error) {
	const op = "update leave status"

	update := models.LeaveStatusUpdate{Status: status}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, models.NewValidationError("leave id is required")
	}

	resp, err := r.api.doJSON(ctx, op, http.MethodPut, r.api.endpoint(nil, "leaves", id, "status"), update)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{}
	if err := r.decode(op, "Failed to update status", resp, result); err != nil {
		return nil, err
	}
	if result.Message == "" {
		result.Message = "Leave updated to " + status
	}

	return result, nil
}

// DashboardCounts fetches the four record lists concurrently and counts them.
func (r *Resources) DashboardCounts(ctx context.Context) (*models.DashboardCounts, error) {
	var counts models.DashboardCounts

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := r.ListCandidates(ctx, models.CandidateFilter{})
		counts.Candidates = len(items)
		return err
	})
	g.Go(func() error {
		items, err := r.ListEmployees(ctx, models.EmployeeFilter{})
		counts.Employees = len(items)
		return err
	})
	g.Go(func() error {
		items, err := r.ListAttendance(ctx, models.AttendanceFilter{})
		counts.Attendance = len(items)
		return err
	})
	g.Go(func() error {
		items, err := r.ListLeaves(ctx, models.LeaveFilter{})
		counts.Leaves = len(items)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &counts, nil
}

// list reads a collection, accepting both {"items": [...]} and a bare array.
// Transport failures are retried with exponential backoff, everything else
// is permanent.
func list[T any](ctx context.Context, r *Resources, op, fallback string, query url.Values, segments ...string) ([]T, error) {
	target := r.api.endpoint(query, segments...)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.RetryInitialInterval

	items, err := backoff.Retry(ctx, func() ([]T, error) {
		resp, err := r.api.do(ctx, op, http.MethodGet, target, nil, "")
		if err != nil {
			log.Debug().Err(err).Str("op", op).Msg("list request failed, retrying")
			return nil, err
		}

		var items []T
		if err := r.decodeList(op, fallback, resp, &items); err != nil {
			if IsTransport(err) && resp.StatusCode >= 500 {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return items, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(listMaxTries))
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []T{}
	}

	return items, nil
}

func (r *Resources) decodeList(op, fallback string, resp *response, out any) error {
	if err := r.checkStatus(op, fallback, resp); err != nil {
		return err
	}

	var envelope struct {
		Items json.RawMessage `json:"items"`
	}
	data := resp.Body
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Items) > 0 {
		data = envelope.Items
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

func (r *Resources) decode(op, fallback string, resp *response, out any) error {
	if err := r.checkStatus(op, fallback, resp); err != nil {
		return err
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// checkStatus maps a non-2xx response to the error taxonomy.
func (r *Resources) checkStatus(op, fallback string, resp *response) error {
	if resp.ok() {
		return nil
	}

	msg, fieldErrs := parseErrorBody(resp.Body, fallback)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if r.OnUnauthorized != nil {
			r.OnUnauthorized(op)
		}
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case fieldErrs != nil:
		return fieldErrs
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	default:
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
}

// RequestError is a 4xx answer to a resource call, e.g. a record that no
// longer exists. Message comes from the server.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}
