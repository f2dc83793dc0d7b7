package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("document not found")

// Store is the document collection holding the program pool.
type Store interface {
	Find(ctx context.Context, filter bson.M, limit int64) ([]ProgramDocument, error)
	FindOne(ctx context.Context, filter bson.M) (*ProgramDocument, error)
	UpdateOne(ctx context.Context, filter, update bson.M) (*UpdateResult, error)
}

// DataAPIConfig addresses one collection behind a hosted document API.
type DataAPIConfig struct {
	BaseURL    string
	APIKey     string
	DataSource string
	Database   string
	Collection string
	Timeout    time.Duration
}

// DataAPI speaks the Atlas Data API wire format: every operation is a POST
// to {base}/action/{name} with the target collection in the body.
type DataAPI struct {
	cfg        DataAPIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewDataAPI(cfg DataAPIConfig, logger *zap.Logger) (*DataAPI, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("data api url is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("data api database and collection are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &DataAPI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type actionRequest struct {
	DataSource string `json:"dataSource,omitempty"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Filter     bson.M `json:"filter"`
	Update     bson.M `json:"update,omitempty"`
	Limit      int64  `json:"limit,omitempty"`
}

func (d *DataAPI) request(filter bson.M) actionRequest {
	if filter == nil {
		filter = bson.M{}
	}
	return actionRequest{
		DataSource: d.cfg.DataSource,
		Database:   d.cfg.Database,
		Collection: d.cfg.Collection,
		Filter:     filter,
	}
}

func (d *DataAPI) do(ctx context.Context, action string, body actionRequest, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+"/action/"+action, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", d.cfg.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	d.logger.Debug("data api call", zap.String("action", action), zap.Int("status", resp.StatusCode))

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

func (d *DataAPI) Find(ctx context.Context, filter bson.M, limit int64) ([]ProgramDocument, error) {
	body := d.request(filter)
	body.Limit = limit

	var out struct {
		Documents []ProgramDocument `json:"documents"`
	}
	if err := d.do(ctx, "find", body, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (d *DataAPI) FindOne(ctx context.Context, filter bson.M) (*ProgramDocument, error) {
	var out struct {
		Document *ProgramDocument `json:"document"`
	}
	if err := d.do(ctx, "findOne", d.request(filter), &out); err != nil {
		return nil, err
	}
	if out.Document == nil {
		return nil, ErrNotFound
	}
	return out.Document, nil
}

func (d *DataAPI) UpdateOne(ctx context.Context, filter, update bson.M) (*UpdateResult, error) {
	body := d.request(filter)
	body.Update = update

	var out UpdateResult
	if err := d.do(ctx, "updateOne", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
