package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaneko/kameki/internal/learning"
)

// jsonHandler stamps the content type so response bodies parse as JSON.
func jsonHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler.ServeHTTP(w, r)
	})
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(jsonHandler(handler))
	t.Cleanup(server.Close)
	client := NewClient("test-token", Options{
		BaseURL:           server.URL,
		RequestsPerMinute: 100000,
		RetryAttempts:     2,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetUser(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"object": "user",
			"data": {
				"id": "abc",
				"username": "koichi",
				"level": 7,
				"started_at": "2023-01-15T10:00:00Z",
				"subscription": {"max_level_granted": 60}
			}
		}`)
	}))

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "koichi", user.Username)
	assert.Equal(t, 7, user.Level)
	assert.Equal(t, 60, user.MaxLevelGranted)
	assert.False(t, user.OnVacation)
}

func TestGetSubjectsPaginates(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/subjects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("updated_after"))
		fmt.Fprintf(w, `{
			"object": "collection",
			"pages": {"next_url": "%s/subjects_page2"},
			"data_updated_at": "2024-05-01T10:00:00Z",
			"data": [{
				"id": 440,
				"object": "kanji",
				"data": {
					"level": 2,
					"characters": "犬",
					"meanings": [{"meaning": "Dog", "primary": true}],
					"auxiliary_meanings": [{"meaning": "Hound", "type": "blacklist"}],
					"readings": [{"reading": "けん", "primary": true, "type": "onyomi"}]
				}
			}]
		}`, server.URL)
	})
	mux.HandleFunc("/subjects_page2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"object": "collection",
			"pages": {"next_url": null},
			"data_updated_at": "2024-05-01T10:00:01Z",
			"data": [
				{"id": 441, "object": "vocabulary", "data": {"level": 2, "characters": "犬", "hidden_at": null}},
				{"id": 442, "object": "radical", "data": {"level": 2, "characters": "一", "hidden_at": "2020-01-01T00:00:00Z"}}
			]
		}`)
	})
	server = httptest.NewServer(jsonHandler(mux))
	t.Cleanup(server.Close)
	client := NewClient("test-token", Options{BaseURL: server.URL, RequestsPerMinute: 100000})
	t.Cleanup(func() { client.Close() })

	subjects, hidden, dataUpdatedAt, err := client.GetSubjects(context.Background(), "2024-01-01T00:00:00Z")
	require.NoError(t, err)

	// The stamp comes from the first page; hidden entries split off.
	assert.Equal(t, "2024-05-01T10:00:00Z", dataUpdatedAt)
	assert.Equal(t, []int64{442}, hidden)
	require.Len(t, subjects, 2)

	kanji := subjects[0]
	assert.Equal(t, learning.SubjectKanji, kanji.Type)
	assert.Equal(t, "犬", kanji.Japanese)
	assert.Equal(t, []learning.Meaning{
		{Meaning: "Dog", Type: learning.MeaningPrimary},
		{Meaning: "Hound", Type: learning.MeaningBlacklist},
	}, kanji.Meanings)
	assert.Equal(t, []learning.Reading{
		{Reading: "けん", IsPrimary: true, Type: learning.ReadingOnyomi},
	}, kanji.Readings)
}

func TestGetAssignments(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assignments", r.URL.Path)
		fmt.Fprint(w, `{
			"object": "collection",
			"pages": {"next_url": null},
			"data_updated_at": "2024-05-01T10:00:00Z",
			"data": [{
				"id": 10,
				"object": "assignment",
				"data": {
					"subject_id": 440,
					"subject_type": "kanji",
					"srs_stage": 5,
					"unlocked_at": "2024-04-01T00:00:00Z",
					"started_at": "2024-04-02T00:00:00Z",
					"available_at": "2024-05-02T00:00:00Z",
					"passed_at": null
				}
			}]
		}`)
	}))

	assignments, _, err := client.GetAssignments(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	got := assignments[0]
	assert.Equal(t, int64(10), got.ID)
	assert.Equal(t, int64(440), got.SubjectID)
	assert.Equal(t, learning.SubjectKanji, got.SubjectType)
	assert.Equal(t, learning.StageGuru1, got.SRSStage)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), got.AvailableAt)
	assert.True(t, got.PassedAt.IsZero())
}

func TestCreateProgress(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	t.Run("lesson starts the assignment", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/assignments/10/start", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "2024-05-01T10:30:00Z", body["started_at"])
			fmt.Fprint(w, `{}`)
		}))

		err := client.CreateProgress(context.Background(), learning.Progress{
			Assignment: learning.Assignment{ID: 10, SubjectID: 440},
			IsLesson:   true,
			CreatedAt:  now,
		})
		require.NoError(t, err)
	})

	t.Run("review posts wrong counts", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/reviews", r.URL.Path)
			var body struct {
				Review struct {
					AssignmentID     int64  `json:"assignment_id"`
					IncorrectMeaning int    `json:"incorrect_meaning_answers"`
					IncorrectReading int    `json:"incorrect_reading_answers"`
					CreatedAt        string `json:"created_at"`
				} `json:"review"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(10), body.Review.AssignmentID)
			assert.Equal(t, 2, body.Review.IncorrectMeaning)
			assert.Equal(t, 0, body.Review.IncorrectReading)
			assert.Equal(t, "2024-05-01T10:30:00Z", body.Review.CreatedAt)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{}`)
		}))

		err := client.CreateProgress(context.Background(), learning.Progress{
			Assignment:        learning.Assignment{ID: 10, SubjectID: 440},
			MeaningWrong:      true,
			MeaningWrongCount: 2,
			CreatedAt:         now,
		})
		require.NoError(t, err)
	})
}

func TestUpdateStudyMaterial(t *testing.T) {
	t.Run("creates when the server has no record", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/study_materials", r.URL.Path)
			var body struct {
				StudyMaterial struct {
					SubjectID       int64    `json:"subject_id"`
					MeaningSynonyms []string `json:"meaning_synonyms"`
				} `json:"study_material"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(440), body.StudyMaterial.SubjectID)
			assert.Equal(t, []string{"doggo"}, body.StudyMaterial.MeaningSynonyms)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{}`)
		}))

		err := client.UpdateStudyMaterial(context.Background(), learning.StudyMaterial{
			SubjectID:       440,
			MeaningSynonyms: []string{"doggo"},
		})
		require.NoError(t, err)
	})

	t.Run("updates an existing record", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/study_materials/77", r.URL.Path)
			fmt.Fprint(w, `{}`)
		}))

		err := client.UpdateStudyMaterial(context.Background(), learning.StudyMaterial{
			ID:        77,
			SubjectID: 440,
		})
		require.NoError(t, err)
	})
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 is unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnauthorized(err))
				assert.False(t, IsUnprocessable(err))
			},
		},
		{
			name:   "422 is unprocessable",
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnprocessable(err))
				assert.False(t, IsUnauthorized(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error": "nope", "code": 0}`)
			}))

			_, err := client.GetUser(context.Background())
			require.Error(t, err)
			tt.check(t, err)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.Code)
			assert.Equal(t, "nope", statusErr.Message)
		})
	}
}

func TestIsTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil is not transport",
			err:  nil,
			want: false,
		},
		{
			name: "status error carries a server answer",
			err:  &StatusError{Code: http.StatusInternalServerError},
			want: false,
		},
		{
			name: "wrapped status error carries a server answer",
			err:  fmt.Errorf("client.GetUser() > %w", &StatusError{Code: http.StatusUnauthorized}),
			want: false,
		},
		{
			name: "decode error carries a server answer",
			err:  &DecodeError{Entity: "subject", ID: 440, Err: errors.New("unexpected end of JSON input")},
			want: false,
		},
		{
			name: "connection failure is transport",
			err:  errors.New("dial tcp 127.0.0.1:443: i/o timeout"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransport(tt.err))
		})
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"object": "user", "data": {"username": "koichi", "level": 1}}`)
	}))

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "koichi", user.Username)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "bad token"}`)
	}))

	_, err := client.GetUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
}
