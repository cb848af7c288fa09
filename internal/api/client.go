// Package api talks to the remote learning service: paginated entity
// listings for the sync engine and the two upload endpoints for finished
// progress and edited study materials.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/mkaneko/kameki/internal/learning"
)

const defaultBaseURL = "https://api.wanikani.com/v2"

// Options tunes the client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	// RequestsPerMinute paces all calls under the service's rate limit.
	RequestsPerMinute int
	RetryAttempts     uint
}

// Client is a rate-limited HTTP client for the service API. Methods retry
// transient failures; permanent rejections surface as *StatusError.
type Client struct {
	httpClient       *resty.Client
	limiter          *rate.Limiter
	maxRetryAttempts uint
}

// NewClient creates a client authenticated with the user's API token.
func NewClient(token string, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	perMinute := opts.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Bearer "+token)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		limiter:          rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		maxRetryAttempts: opts.RetryAttempts,
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			if err := fn(); err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetryAttempts+1),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (c *Client) do(ctx context.Context, method, requestURL string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("limiter.Wait() > %w", err)
	}
	slog.Debug("api request", slog.String("method", method), slog.String("url", requestURL))

	request := c.httpClient.R().SetContext(ctx)
	if body != nil {
		request.SetBody(body)
	}
	if out != nil {
		request.SetResult(out)
	}

	var response *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		response, err = request.Get(requestURL)
	case http.MethodPost:
		response, err = request.Post(requestURL)
	case http.MethodPut:
		response, err = request.Put(requestURL)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("request.%s(%s) > %w", method, requestURL, err)
	}
	if response.IsError() {
		var errBody errorBody
		_ = json.Unmarshal([]byte(response.String()), &errBody)
		return &StatusError{Code: response.StatusCode(), Message: errBody.Error}
	}
	return nil
}

// getCollection follows next_url pagination until the listing is exhausted,
// returning all resources and the server's data stamp from the first page.
func (c *Client) getCollection(ctx context.Context, path, updatedAfter string) ([]resource, string, error) {
	query := url.Values{}
	if updatedAfter != "" {
		query.Set("updated_after", updatedAfter)
	}
	next := path
	if len(query) > 0 {
		next += "?" + query.Encode()
	}

	var resources []resource
	var dataUpdatedAt string
	for next != "" {
		var page collection
		requestURL := next
		if err := c.withRetry(ctx, func() error {
			page = collection{}
			return c.do(ctx, http.MethodGet, requestURL, nil, &page)
		}); err != nil {
			return nil, "", err
		}
		resources = append(resources, page.Data...)
		if dataUpdatedAt == "" {
			dataUpdatedAt = page.DataUpdatedAt
		}
		next = page.Pages.NextURL
	}
	return resources, dataUpdatedAt, nil
}

// GetUser fetches the account record.
func (c *Client) GetUser(ctx context.Context) (*learning.User, error) {
	var envelope struct {
		Data userData `json:"data"`
	}
	if err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/user", nil, &envelope)
	}); err != nil {
		return nil, err
	}
	return envelope.Data.toLearning(), nil
}

// GetSubjects fetches catalog entries changed since updatedAfter. Entries the
// server has hidden come back separately as ids to delete.
func (c *Client) GetSubjects(ctx context.Context, updatedAfter string) ([]*learning.Subject, []int64, string, error) {
	resources, dataUpdatedAt, err := c.getCollection(ctx, "/subjects", updatedAfter)
	if err != nil {
		return nil, nil, "", err
	}
	var subjects []*learning.Subject
	var hidden []int64
	for _, r := range resources {
		var data subjectData
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, nil, "", &DecodeError{Entity: "subject", ID: r.ID, Err: err}
		}
		if data.HiddenAt != nil {
			hidden = append(hidden, r.ID)
			continue
		}
		subjects = append(subjects, data.toLearning(r.ID, r.Object))
	}
	return subjects, hidden, dataUpdatedAt, nil
}

// GetAssignments fetches assignments changed since updatedAfter. The level
// field is not part of the wire record; the caller joins it from the subject
// catalog.
func (c *Client) GetAssignments(ctx context.Context, updatedAfter string) ([]learning.Assignment, string, error) {
	resources, dataUpdatedAt, err := c.getCollection(ctx, "/assignments", updatedAfter)
	if err != nil {
		return nil, "", err
	}
	assignments := make([]learning.Assignment, 0, len(resources))
	for _, r := range resources {
		var data assignmentData
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, "", &DecodeError{Entity: "assignment", ID: r.ID, Err: err}
		}
		assignments = append(assignments, data.toLearning(r.ID))
	}
	return assignments, dataUpdatedAt, nil
}

// GetStudyMaterials fetches study materials changed since updatedAfter.
func (c *Client) GetStudyMaterials(ctx context.Context, updatedAfter string) ([]learning.StudyMaterial, string, error) {
	resources, dataUpdatedAt, err := c.getCollection(ctx, "/study_materials", updatedAfter)
	if err != nil {
		return nil, "", err
	}
	materials := make([]learning.StudyMaterial, 0, len(resources))
	for _, r := range resources {
		var data studyMaterialData
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, "", &DecodeError{Entity: "study_material", ID: r.ID, Err: err}
		}
		materials = append(materials, data.toLearning(r.ID))
	}
	return materials, dataUpdatedAt, nil
}

// GetLevelProgressions fetches level progressions changed since updatedAfter.
func (c *Client) GetLevelProgressions(ctx context.Context, updatedAfter string) ([]learning.LevelProgression, string, error) {
	resources, dataUpdatedAt, err := c.getCollection(ctx, "/level_progressions", updatedAfter)
	if err != nil {
		return nil, "", err
	}
	progressions := make([]learning.LevelProgression, 0, len(resources))
	for _, r := range resources {
		var data levelProgressionData
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, "", &DecodeError{Entity: "level_progression", ID: r.ID, Err: err}
		}
		progressions = append(progressions, data.toLearning(r.ID))
	}
	return progressions, dataUpdatedAt, nil
}

// GetVoiceActors fetches voice actors changed since updatedAfter.
func (c *Client) GetVoiceActors(ctx context.Context, updatedAfter string) ([]learning.VoiceActor, string, error) {
	resources, dataUpdatedAt, err := c.getCollection(ctx, "/voice_actors", updatedAfter)
	if err != nil {
		return nil, "", err
	}
	actors := make([]learning.VoiceActor, 0, len(resources))
	for _, r := range resources {
		var data voiceActorData
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return nil, "", &DecodeError{Entity: "voice_actor", ID: r.ID, Err: err}
		}
		actors = append(actors, data.toLearning(r.ID))
	}
	return actors, dataUpdatedAt, nil
}

// CreateProgress uploads one finished lesson or review.
func (c *Client) CreateProgress(ctx context.Context, progress learning.Progress) error {
	if progress.IsLesson {
		body := map[string]any{}
		if !progress.CreatedAt.IsZero() {
			body["started_at"] = progress.CreatedAt.UTC().Format(time.RFC3339)
		}
		path := fmt.Sprintf("/assignments/%d/start", progress.Assignment.ID)
		return c.withRetry(ctx, func() error {
			return c.do(ctx, http.MethodPut, path, body, nil)
		})
	}

	body := map[string]any{
		"review": map[string]any{
			"assignment_id":             progress.Assignment.ID,
			"incorrect_meaning_answers": progress.MeaningWrongCount,
			"incorrect_reading_answers": progress.ReadingWrongCount,
			"created_at":                progress.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	return c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/reviews", body, nil)
	})
}

// UpdateStudyMaterial uploads a local study-material edit, creating the
// record when the server has not assigned it an id yet.
func (c *Client) UpdateStudyMaterial(ctx context.Context, material learning.StudyMaterial) error {
	payload := map[string]any{
		"meaning_note":     material.MeaningNote,
		"reading_note":     material.ReadingNote,
		"meaning_synonyms": material.MeaningSynonyms,
	}
	if material.ID == 0 {
		payload["subject_id"] = material.SubjectID
		return c.withRetry(ctx, func() error {
			return c.do(ctx, http.MethodPost, "/study_materials",
				map[string]any{"study_material": payload}, nil)
		})
	}
	path := fmt.Sprintf("/study_materials/%d", material.ID)
	return c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPut, path,
			map[string]any{"study_material": payload}, nil)
	})
}
