package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

// Client is an HTTP implementation of API against a support-inbox
// platform speaking the /api/v1 REST dialect. Credentials travel
// per-call with the instance: base URL, account id and API key.
type Client struct {
	client   *http.Client
	breakers *breakerSet
	logger   *zap.Logger
}

// Compile-time interface check
var _ API = (*Client)(nil)

// NewClient creates an HTTP remote access client.
func NewClient(logger *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		client:   &http.Client{Transport: transport},
		breakers: newBreakerSet(5, 30*time.Second),
		logger:   logger.With(zap.String("component", "remote_client")),
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

// do performs one request against the instance's platform and decodes
// the JSON response into out (out may be nil for empty responses).
func (c *Client) do(ctx context.Context, inst entity.Instance, method, path string, in, out any) error {
	breaker := c.breakers.forInstance(inst.ID)
	if !breaker.allow() {
		c.logger.Warn("Circuit open, rejecting remote call",
			zap.String("path", path),
			zap.Int64("instance_id", inst.ID))
		return errors.NewRemoteFailureError("remote temporarily unavailable", nil)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, "marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	url := strings.TrimRight(inst.BaseURL, "/") + "/api/v1" + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+inst.APIKey)
	req.Header.Set("X-Account-Id", fmt.Sprintf("%d", inst.AccountID))

	resp, err := c.client.Do(req)
	if err != nil {
		breaker.recordFailure()
		return errors.NewRemoteFailureError("remote request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		breaker.recordFailure()
		return errors.NewRemoteFailureError("read remote response", err)
	}

	// 4xx means the platform is reachable and spoke; only network
	// errors and 5xx count against the instance's circuit.
	if resp.StatusCode >= 500 {
		breaker.recordFailure()
	} else {
		breaker.recordSuccess()
	}

	if resp.StatusCode >= 400 {
		detail := http.StatusText(resp.StatusCode)
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Detail != "" {
			detail = eb.Detail
		}
		c.logger.Warn("Remote call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Int64("instance_id", inst.ID))

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.NewUnauthorizedError(detail)
		case http.StatusNotFound:
			return errors.NewNotFoundError(detail)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return errors.NewInvalidInputError(detail)
		default:
			return errors.NewRemoteFailureError(detail, nil)
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewRemoteFailureError("decode remote response", err)
	}
	return nil
}

// TestConnection probes the platform with the candidate credentials.
func (c *Client) TestConnection(ctx context.Context, inst entity.Instance) (ConnectionResult, error) {
	if !strings.HasPrefix(inst.BaseURL, "https://") {
		return ConnectionResult{Success: false, Message: "La URL debe empezar con https://"}, nil
	}
	err := c.do(ctx, inst, http.MethodGet, "/profile", nil, nil)
	if err != nil {
		if errors.IsUnauthorized(err) {
			return ConnectionResult{Success: false, Message: "La API Key es inválida o no tiene permisos."}, nil
		}
		return ConnectionResult{}, err
	}
	return ConnectionResult{Success: true, Message: "Conexión exitosa."}, nil
}

func (c *Client) ListConversations(ctx context.Context, inst entity.Instance) ([]entity.Conversation, error) {
	var out []entity.Conversation
	path := fmt.Sprintf("/instances/%d/conversations", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Message, error) {
	var out []entity.Message
	path := fmt.Sprintf("/instances/%d/conversations/%d/messages", inst.ID, conversationID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateConversationStage(ctx context.Context, conversationID int64, newStageID string, inst entity.Instance) (entity.Conversation, error) {
	var out entity.Conversation
	path := fmt.Sprintf("/instances/%d/conversations/%d/stage", inst.ID, conversationID)
	in := map[string]string{"new_stage_id": newStageID}
	if err := c.do(ctx, inst, http.MethodPatch, path, in, &out); err != nil {
		return entity.Conversation{}, err
	}
	return out, nil
}

func (c *Client) AddConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	var out entity.Conversation
	path := fmt.Sprintf("/instances/%d/conversations/%d/tags", inst.ID, conversationID)
	if err := c.do(ctx, inst, http.MethodPost, path, map[string]string{"tag": tag}, &out); err != nil {
		return entity.Conversation{}, err
	}
	return out, nil
}

func (c *Client) RemoveConversationTag(ctx context.Context, conversationID int64, tag string, inst entity.Instance) (entity.Conversation, error) {
	var out entity.Conversation
	path := fmt.Sprintf("/instances/%d/conversations/%d/tags", inst.ID, conversationID)
	if err := c.do(ctx, inst, http.MethodDelete, path, map[string]string{"tag": tag}, &out); err != nil {
		return entity.Conversation{}, err
	}
	return out, nil
}

func (c *Client) ListContacts(ctx context.Context, inst entity.Instance) ([]entity.Contact, error) {
	var out []entity.Contact
	path := fmt.Sprintf("/instances/%d/contacts", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateContact(ctx context.Context, contactID int64, upd ContactUpdate, inst entity.Instance) (entity.Contact, error) {
	var out entity.Contact
	path := fmt.Sprintf("/instances/%d/contacts/%d", inst.ID, contactID)
	if err := c.do(ctx, inst, http.MethodPatch, path, upd, &out); err != nil {
		return entity.Contact{}, err
	}
	return out, nil
}

func (c *Client) ListAgents(ctx context.Context, inst entity.Instance) ([]entity.Agent, error) {
	var out []entity.Agent
	path := fmt.Sprintf("/instances/%d/agents", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateAgentStatus(ctx context.Context, agentID int64, isActive bool, inst entity.Instance) (entity.Agent, error) {
	var out entity.Agent
	path := fmt.Sprintf("/instances/%d/agents/%d", inst.ID, agentID)
	in := map[string]bool{"is_active": isActive}
	if err := c.do(ctx, inst, http.MethodPatch, path, in, &out); err != nil {
		return entity.Agent{}, err
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context, inst entity.Instance) ([]entity.Task, error) {
	var out []entity.Task
	path := fmt.Sprintf("/instances/%d/tasks", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListConversationTasks(ctx context.Context, conversationID int64, inst entity.Instance) ([]entity.Task, error) {
	var out []entity.Task
	path := fmt.Sprintf("/instances/%d/conversations/%d/tasks", inst.ID, conversationID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, task entity.Task, inst entity.Instance) (entity.Task, error) {
	var out entity.Task
	path := fmt.Sprintf("/instances/%d/tasks", inst.ID)
	if err := c.do(ctx, inst, http.MethodPost, path, task, &out); err != nil {
		return entity.Task{}, err
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID int64, upd TaskUpdate, inst entity.Instance) (entity.Task, error) {
	var out entity.Task
	path := fmt.Sprintf("/instances/%d/tasks/%d", inst.ID, taskID)
	if err := c.do(ctx, inst, http.MethodPatch, path, upd, &out); err != nil {
		return entity.Task{}, err
	}
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID int64, inst entity.Instance) error {
	path := fmt.Sprintf("/instances/%d/tasks/%d", inst.ID, taskID)
	return c.do(ctx, inst, http.MethodDelete, path, nil, nil)
}

// GetPipelineStages and PutPipelineStages address the platform-wide
// pipeline catalog, so any registered instance works as the carrier.
// The HTTP client keeps them unimplemented until the upstream exposes
// an unauthenticated catalog endpoint; deployments using the HTTP
// client configure stages locally via the YAML catalog.
func (c *Client) GetPipelineStages(ctx context.Context, industry entity.Industry) ([]entity.PipelineStageConfig, error) {
	return nil, errors.NewRemoteFailureError("pipeline catalog not available over HTTP remote", nil)
}

func (c *Client) PutPipelineStages(ctx context.Context, industry entity.Industry, stages []entity.PipelineStageConfig) ([]entity.PipelineStageConfig, error) {
	return nil, errors.NewRemoteFailureError("pipeline catalog not available over HTTP remote", nil)
}

func (c *Client) ListTeams(ctx context.Context, inst entity.Instance) ([]entity.Team, error) {
	var out []entity.Team
	path := fmt.Sprintf("/instances/%d/teams", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListInboxes(ctx context.Context, inst entity.Instance) ([]entity.Inbox, error) {
	var out []entity.Inbox
	path := fmt.Sprintf("/instances/%d/inboxes", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProperties(ctx context.Context, inst entity.Instance) ([]entity.Property, error) {
	var out []entity.Property
	path := fmt.Sprintf("/instances/%d/properties", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMedicalServices(ctx context.Context, inst entity.Instance) ([]entity.MedicalService, error) {
	var out []entity.MedicalService
	path := fmt.Sprintf("/instances/%d/medical-services", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetKpis(ctx context.Context, inst entity.Instance) (entity.Kpis, error) {
	var out entity.Kpis
	path := fmt.Sprintf("/summary/kpis?instance_id=%d", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return entity.Kpis{}, err
	}
	return out, nil
}

func (c *Client) ListAnomalies(ctx context.Context, inst entity.Instance) ([]entity.Anomaly, error) {
	var out []entity.Anomaly
	path := fmt.Sprintf("/summary/anomalies?instance_id=%d", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListHealthChecks(ctx context.Context, inst entity.Instance) ([]entity.HealthCheck, error) {
	var out []entity.HealthCheck
	path := fmt.Sprintf("/summary/health?instance_id=%d", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConversationVolume(ctx context.Context, inst entity.Instance, days int) ([]entity.TimeSeriesPoint, error) {
	period := "30d"
	if days <= 7 {
		period = "7d"
	}
	var out []entity.TimeSeriesPoint
	path := fmt.Sprintf("/summary/volume?instance_id=%d&period=%s", inst.ID, period)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSentiment(ctx context.Context, inst entity.Instance) (entity.SentimentData, error) {
	var out entity.SentimentData
	path := fmt.Sprintf("/summary/sentiment?instance_id=%d", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return entity.SentimentData{}, err
	}
	return out, nil
}

func (c *Client) GetAiAnalysis(ctx context.Context, inst entity.Instance) (entity.AiAnalysisReport, error) {
	var out entity.AiAnalysisReport
	path := fmt.Sprintf("/instances/%d/ai-analysis", inst.ID)
	if err := c.do(ctx, inst, http.MethodGet, path, nil, &out); err != nil {
		return entity.AiAnalysisReport{}, err
	}
	return out, nil
}
