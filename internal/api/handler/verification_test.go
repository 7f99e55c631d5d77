package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/ingest"
)

// MockVerificationService is a mock implementation of VerificationService
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Run(ctx context.Context, src ingest.Source) (*domain.VerificationOutput, error) {
	args := m.Called(ctx, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationOutput), args.Error(1)
}

func (m *MockVerificationService) Comparisons(ctx context.Context, runID uuid.UUID) ([]domain.ComparisonRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComparisonRecord), args.Error(1)
}

type emptySource struct{}

func (emptySource) Applicants(context.Context) ([]domain.Applicant, error) {
	return nil, nil
}

func staticSources(*ingest.Manifest) (ingest.Source, func(), error) {
	return emptySource{}, func() {}, nil
}

const validManifest = `{
  "comparison_matrix": [{"role": "Applicant", "primary": "PAN", "compare_with": ["AADHAAR"]}],
  "applicants": [{"key": "applicant", "documents": []}]
}`

func createTestApp(h *VerificationHandler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
	app.Post("/v1/verifications", h.Create)
	app.Get("/v1/verifications/:id/comparisons", h.Comparisons)
	return app
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out.Error.Code
}

func TestVerificationHandler_Create(t *testing.T) {
	runID := uuid.New()

	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockVerificationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "runs the manifest",
			body: validManifest,
			setupMock: func(m *MockVerificationService) {
				m.On("Run", mock.Anything, mock.Anything).Return(&domain.VerificationOutput{
					RunID:        runID,
					Status:       "success",
					Applicant:    &domain.ApplicantReport{Role: "Applicant", Comparisons: []domain.ComparisonRecord{}},
					CoApplicants: []domain.ApplicantReport{},
				}, nil)
			},
			wantStatus: 200,
		},
		{
			name:       "invalid json",
			body:       `{"applicants": [`,
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "INVALID_MANIFEST",
		},
		{
			name:       "no mapped applicants",
			body:       `{"comparison_matrix": [], "applicants": [{"key": "applicant"}]}`,
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "NO_APPLICANTS",
		},
		{
			name: "run fails",
			body: validManifest,
			setupMock: func(m *MockVerificationService) {
				m.On("Run", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
			},
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name: "input not found",
			body: validManifest,
			setupMock: func(m *MockVerificationService) {
				m.On("Run", mock.Anything, mock.Anything).Return(nil, domain.ErrInputNotFound)
			},
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockVerificationService{}
			tt.setupMock(svc)

			h := NewVerificationHandler(svc, staticSources, testLogger())
			app := createTestApp(h)

			req := httptest.NewRequest("POST", "/v1/verifications", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var out domain.VerificationOutput
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, runID, out.RunID)
				assert.Equal(t, "success", out.Status)
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestVerificationHandler_Create_OneRunAtATime(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	svc := &MockVerificationService{}
	svc.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(&domain.VerificationOutput{RunID: uuid.New(), Status: "success"}, nil).Once()

	h := NewVerificationHandler(svc, staticSources, testLogger())
	app := createTestApp(h)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest("POST", "/v1/verifications", strings.NewReader(validManifest))
		resp, err := app.Test(req, -1)
		if err != nil {
			done <- 0
			return
		}
		done <- resp.StatusCode
	}()

	<-started
	req := httptest.NewRequest("POST", "/v1/verifications", strings.NewReader(validManifest))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.Equal(t, "RUN_IN_PROGRESS", errorCode(t, resp.Body))

	close(release)
	select {
	case status := <-done:
		assert.Equal(t, 200, status)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
}

func TestVerificationHandler_Create_RejectsLocalPaths(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
	}{
		{name: "absolute path", filePath: "/etc/passwd"},
		{name: "relative path", filePath: "../secrets/id.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			svc := &MockVerificationService{}
			sources := ingest.NewRemoteSources(base, nil, testLogger())
			h := NewVerificationHandler(svc, sources.Source, testLogger())
			app := createTestApp(h)

			body := `{
  "comparison_matrix": [{"role": "Applicant", "primary": "PAN"}],
  "applicants": [{"key": "applicant", "documents": [{"document_class": "PAN", "file_path": "` + tt.filePath + `"}]}]
}`
			req := httptest.NewRequest("POST", "/v1/verifications", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, 400, resp.StatusCode)
			assert.Equal(t, "BAD_REQUEST", errorCode(t, resp.Body))
			svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)

			entries, err := os.ReadDir(base)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestVerificationHandler_Create_ReleasesSource(t *testing.T) {
	svc := &MockVerificationService{}
	svc.On("Run", mock.Anything, mock.Anything).
		Return(&domain.VerificationOutput{RunID: uuid.New(), Status: "success"}, nil)

	base := t.TempDir()
	sources := ingest.NewRemoteSources(base, nil, testLogger())
	h := NewVerificationHandler(svc, sources.Source, testLogger())
	app := createTestApp(h)

	body := `{
  "comparison_matrix": [{"role": "Applicant", "primary": "PAN"}],
  "applicants": [{"key": "applicant", "documents": [{"document_class": "PAN", "file_path": "s3://kyc/a/pan.jpg"}]}]
}`
	req := httptest.NewRequest("POST", "/v1/verifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "per-request dataset dir must be removed after the run")
	svc.AssertExpectations(t)
}

func TestVerificationHandler_Comparisons(t *testing.T) {
	runID := uuid.New()

	tests := []struct {
		name       string
		id         string
		setupMock  func(m *MockVerificationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "returns records",
			id:   runID.String(),
			setupMock: func(m *MockVerificationService) {
				m.On("Comparisons", mock.Anything, runID).Return([]domain.ComparisonRecord{
					{DocumentClass: "AADHAAR", IsMatch: true, Details: domain.DetailsComparisonDone},
				}, nil)
			},
			wantStatus: 200,
		},
		{
			name:       "invalid id",
			id:         "not-a-uuid",
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "persistence disabled",
			id:   runID.String(),
			setupMock: func(m *MockVerificationService) {
				m.On("Comparisons", mock.Anything, runID).Return(nil, domain.ErrPersistenceDisabled)
			},
			wantStatus: 501,
			wantCode:   "PERSISTENCE_DISABLED",
		},
		{
			name: "unknown run",
			id:   runID.String(),
			setupMock: func(m *MockVerificationService) {
				m.On("Comparisons", mock.Anything, runID).Return(nil, domain.ErrNotFound)
			},
			wantStatus: 404,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockVerificationService{}
			tt.setupMock(svc)

			h := NewVerificationHandler(svc, nil, testLogger())
			app := createTestApp(h)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/verifications/"+tt.id+"/comparisons", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var out ComparisonsResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, runID.String(), out.RunID)
				require.Len(t, out.Comparisons, 1)
				assert.True(t, out.Comparisons[0].IsMatch)
			}

			svc.AssertExpectations(t)
		})
	}
}
