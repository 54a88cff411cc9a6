// Package apiclient is a typed client for the medconsult HTTP API.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jwalitptl/medconsult-api/internal/model"
	apperrors "github.com/jwalitptl/medconsult-api/pkg/errors"
	"github.com/jwalitptl/medconsult-api/pkg/httputil"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryCount applies to GET requests that failed in transport. Answered
	// requests and mutations are never retried.
	RetryCount    int
	RetryWaitTime time.Duration
}

type Client struct {
	httpClient *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWaitTime <= 0 {
		cfg.RetryWaitTime = 500 * time.Millisecond
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(4 * cfg.RetryWaitTime).
		AddRetryCondition(retryReads).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client}
}

// retryReads retries GETs that never got an answer. A lost response to a
// POST may follow a committed write, so mutations are not repeated.
func retryReads(resp *resty.Response, err error) bool {
	if err == nil || resp == nil || resp.Request == nil {
		return false
	}
	return resp.Request.Method == http.MethodGet
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetError(&httputil.ErrorResponse{})
}

// check turns a failed call into an error. Error responses become AppErrors
// carrying the server's message, so callers handle both backends alike.
func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	message := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*httputil.ErrorResponse); ok && body.Error != "" {
		message = body.Error
	}
	return &apperrors.AppError{Code: codeForStatus(resp.StatusCode()), Message: message}
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrBadRequest
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusConflict:
		return apperrors.ErrInvalidState
	case http.StatusRequestEntityTooLarge:
		return apperrors.ErrTooLarge
	default:
		return apperrors.ErrInternal
	}
}

// Health returns the server's status line.
func (c *Client) Health(ctx context.Context) (string, error) {
	var result struct {
		Status string `json:"status"`
	}
	resp, err := c.request(ctx).SetResult(&result).Get("/health")
	if err := check(resp, err, "check health"); err != nil {
		return "", err
	}
	return result.Status, nil
}

// Users

func (c *Client) ListUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	req := c.request(ctx).SetResult(&users)
	if role != "" {
		req.SetQueryParam("role", string(role))
	}
	resp, err := req.Get("/api/users")
	if err := check(resp, err, "list users"); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).
		SetPathParam("email", email).
		SetResult(&user).
		Get("/api/users/email/{email}")
	if err := check(resp, err, "find user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).SetBody(req).SetResult(&user).Post("/api/users")
	if err := check(resp, err, "create user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete("/api/users/{id}")
	return check(resp, err, "delete user")
}

func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	var user model.User
	resp, err := c.request(ctx).SetBody(req).SetResult(&user).Post("/api/auth/login")
	if err := check(resp, err, "log in"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Appointments

func (c *Client) ListAppointments(ctx context.Context, filters model.AppointmentFilters) ([]model.Appointment, error) {
	var appts []model.Appointment
	req := c.request(ctx).SetResult(&appts)
	if filters.PatientID != "" {
		req.SetQueryParam("patientId", filters.PatientID)
	}
	if filters.DoctorID != "" {
		req.SetQueryParam("doctorId", filters.DoctorID)
	}
	if filters.Status != "" {
		req.SetQueryParam("status", string(filters.Status))
	}
	resp, err := req.Get("/api/appointments")
	if err := check(resp, err, "list appointments"); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return c.appointment(ctx, http.MethodGet, "/api/appointments/{id}", id, nil, "get appointment")
}

func (c *Client) BookAppointment(ctx context.Context, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	var appt model.Appointment
	resp, err := c.request(ctx).SetBody(req).SetResult(&appt).Post("/api/appointments")
	if err := check(resp, err, "book appointment"); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, id string, req model.UpdateAppointmentRequest) (*model.Appointment, error) {
	return c.appointment(ctx, http.MethodPut, "/api/appointments/{id}", id, req, "update appointment")
}

func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete("/api/appointments/{id}")
	return check(resp, err, "delete appointment")
}

func (c *Client) ApproveAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return c.appointment(ctx, http.MethodPost, "/api/appointments/{id}/approve", id, nil, "approve appointment")
}

func (c *Client) RejectAppointment(ctx context.Context, id, reason string) (*model.Appointment, error) {
	body := model.RejectAppointmentRequest{Reason: reason}
	return c.appointment(ctx, http.MethodPost, "/api/appointments/{id}/reject", id, body, "reject appointment")
}

func (c *Client) CompleteAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	return c.appointment(ctx, http.MethodPost, "/api/appointments/{id}/complete", id, nil, "complete appointment")
}

func (c *Client) WritePrescription(ctx context.Context, apptID, text string) (*model.Prescription, error) {
	var presc model.Prescription
	resp, err := c.request(ctx).
		SetPathParam("id", apptID).
		SetBody(model.WritePrescriptionRequest{Text: text}).
		SetResult(&presc).
		Post("/api/appointments/{id}/prescription")
	if err := check(resp, err, "write prescription"); err != nil {
		return nil, err
	}
	return &presc, nil
}

func (c *Client) appointment(ctx context.Context, method, path, id string, body interface{}, op string) (*model.Appointment, error) {
	var appt model.Appointment
	req := c.request(ctx).SetPathParam("id", id).SetResult(&appt)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err := check(resp, err, op); err != nil {
		return nil, err
	}
	return &appt, nil
}

// Prescriptions

func (c *Client) ListPrescriptions(ctx context.Context) ([]model.Prescription, error) {
	var prescs []model.Prescription
	resp, err := c.request(ctx).SetResult(&prescs).Get("/api/prescriptions")
	if err := check(resp, err, "list prescriptions"); err != nil {
		return nil, err
	}
	return prescs, nil
}

func (c *Client) GetPrescription(ctx context.Context, id string) (*model.Prescription, error) {
	return c.prescription(ctx, http.MethodGet, "/api/prescriptions/{id}", id, nil, "get prescription")
}

func (c *Client) CreatePrescription(ctx context.Context, req model.CreatePrescriptionRequest) (*model.Prescription, error) {
	var presc model.Prescription
	resp, err := c.request(ctx).SetBody(req).SetResult(&presc).Post("/api/prescriptions")
	if err := check(resp, err, "create prescription"); err != nil {
		return nil, err
	}
	return &presc, nil
}

func (c *Client) UpdatePrescription(ctx context.Context, id string, req model.UpdatePrescriptionRequest) (*model.Prescription, error) {
	return c.prescription(ctx, http.MethodPut, "/api/prescriptions/{id}", id, req, "update prescription")
}

func (c *Client) DeletePrescription(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete("/api/prescriptions/{id}")
	return check(resp, err, "delete prescription")
}

func (c *Client) ToggleDispensed(ctx context.Context, id string) (*model.Prescription, error) {
	return c.prescription(ctx, http.MethodPost, "/api/prescriptions/{id}/dispense", id, nil, "toggle dispensed")
}

func (c *Client) MarkUnavailable(ctx context.Context, id string) (*model.Prescription, error) {
	return c.prescription(ctx, http.MethodPost, "/api/prescriptions/{id}/unavailable", id, nil, "mark unavailable")
}

func (c *Client) MarkAvailable(ctx context.Context, id string) (*model.Prescription, error) {
	return c.prescription(ctx, http.MethodPost, "/api/prescriptions/{id}/available", id, nil, "mark available")
}

func (c *Client) prescription(ctx context.Context, method, path, id string, body interface{}, op string) (*model.Prescription, error) {
	var presc model.Prescription
	req := c.request(ctx).SetPathParam("id", id).SetResult(&presc)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err := check(resp, err, op); err != nil {
		return nil, err
	}
	return &presc, nil
}
