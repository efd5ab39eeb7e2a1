package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"timesheet/internal/metrics"
	"timesheet/internal/model"
)

// EmployeesResponse is the envelope returned by the listing and search endpoints.
type EmployeesResponse struct {
	Prev    *string          `json:"prev"`
	Next    int              `json:"next"`
	Count   int              `json:"count"`
	Data    []model.Employee `json:"data"`
	Message string           `json:"message"`
}

// AttendanceResponse is the body of an attendance submission, on success and
// on rejection alike.
type AttendanceResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client calls the remote employee directory service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client. A zero timeout leaves the transport default in place.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchPage requests one 1-based page of the employee listing.
func (c *Client) FetchPage(ctx context.Context, page int) (EmployeesResponse, error) {
	if page < 1 {
		return EmployeesResponse{}, fmt.Errorf("directory: page must be positive, got %d", page)
	}
	q := url.Values{"pages": {strconv.Itoa(page)}}
	var out EmployeesResponse
	err := c.do(ctx, http.MethodGet, "/employees?"+q.Encode(), nil, "", &out)
	metrics.DirectoryRequests.WithLabelValues("fetch_page", metrics.Result(err)).Inc()
	return out, err
}

// SearchByName looks up employees whose name matches name within a location.
func (c *Client) SearchByName(ctx context.Context, name string, locationID int) (EmployeesResponse, error) {
	path := fmt.Sprintf("/search/employee/%s/cedis/%d", url.PathEscape(name), locationID)
	var out EmployeesResponse
	err := c.do(ctx, http.MethodGet, path, nil, "", &out)
	metrics.DirectoryRequests.WithLabelValues("search", metrics.Result(err)).Inc()
	return out, err
}

// SubmitAttendance posts a check-in for employeeID. Rejections come back as a
// *StatusError whose Body holds the service's AttendanceResponse.
func (c *Client) SubmitAttendance(ctx context.Context, employeeID int) (AttendanceResponse, error) {
	form := url.Values{"id_empleado": {strconv.Itoa(employeeID)}}
	var out AttendanceResponse
	err := c.do(ctx, http.MethodPost, "/attendances", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	metrics.DirectoryRequests.WithLabelValues("attendance", metrics.Result(err)).Inc()
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: data}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrProtocol, path, err)
	}
	return nil
}
