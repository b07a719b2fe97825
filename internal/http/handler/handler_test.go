package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"
	"docvault/internal/storage"
	"docvault/internal/workflow"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db.PingContext))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("default view is All", func(t *testing.T) {
		docs := []model.Document{{ID: uuid.New().String(), Filename: "test.pdf", Class: "Invoice", State: "Draft"}}
		mockSvc.On("List", mock.Anything, model.AllView).Return(docs, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		require.Len(t, result, 1)
		assert.Equal(t, "test.pdf", result[0].Filename)
		assert.Equal(t, "Invoice", result[0].Class)
		mockSvc.AssertExpectations(t)
	})

	t.Run("class view", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "Invoice").Return([]model.Document{}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?view=Invoice", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unknown view", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "Nope").Return(nil, fmt.Errorf("%w: %q", service.ErrUnknownView, "Nope")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents?view=Nope", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "UNKNOWN_VIEW", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, model.AllView).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
		assert.NotContains(t, res.Error.Message, "service error")
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/upload", UploadDocument(mockSvc))

	multipartBody := func(content string) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, _ := writer.CreateFormFile("file", "test.txt")
		part.Write([]byte(content))
		writer.Close()
		return body, writer.FormDataContentType()
	}

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody("hello world")

		expectedDoc := &model.Document{ID: uuid.New().String(), Filename: "test.txt", Class: model.Unclassified, State: "Draft"}
		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.txt", mock.Anything, int64(11)).Return(expectedDoc, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/upload/", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.Document
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, expectedDoc.ID, result.ID)
		assert.Equal(t, "Draft", result.State)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		body, ct := multipartBody("hello")

		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.txt", mock.Anything, mock.Anything).Return(nil, errors.New("upload failed")).Once()

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("catalog timeout after rollback", func(t *testing.T) {
		body, ct := multipartBody("hello")

		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.txt", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("db save failed: %w", context.DeadlineExceeded)).Once()

		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		assert.Equal(t, "TIMEOUT", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestCreateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents", CreateDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "a.pdf").Return(&model.Document{ID: "id", Filename: "a.pdf"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents", `{"filename":"a.pdf"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty filename", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, "").Return(nil, fmt.Errorf("%w: filename is required", service.ErrInvalidInput)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents", `{}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "INVALID_INPUT", res.Error.Code)
		assert.Contains(t, res.Error.Message, "filename is required")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents", `{`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	mockFlow := new(serviceMocks.MockWorkflowService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc, mockFlow))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expectedDoc := &model.Document{ID: id, Filename: "test.txt", State: workflow.StateDraft}
		mockSvc.On("Get", mock.Anything, id).Return(expectedDoc, nil).Once()
		mockFlow.On("Actions", *expectedDoc).Return(service.Actions{Events: []string{workflow.EventSubmit}}).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			model.Document
			service.Actions
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Equal(t, "test.txt", result.Filename)
		assert.Equal(t, []string{workflow.EventSubmit}, result.Events)
		assert.False(t, result.Terminal)
		mockSvc.AssertExpectations(t)
		mockFlow.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, context.DeadlineExceeded).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("https://blob/x", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body downloadResponse
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "https://blob/x", body.URL)
	})

	t.Run("store without presign", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("DownloadURL", mock.Anything, id).Return("", storage.ErrPresignUnsupported).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil))

		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})
}

func TestListViews(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/views", ListViews(mockSvc))

	mockSvc.On("Views").Return([]model.View{{Name: model.AllView}, {Name: "Invoice", Class: "Invoice"}})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/views", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var views []model.View
	json.NewDecoder(resp.Body).Decode(&views)
	assert.Equal(t, []model.View{{Name: model.AllView}, {Name: "Invoice", Class: "Invoice"}}, views)
}

func TestGetProperties(t *testing.T) {
	mockSvc := new(serviceMocks.MockPropertyService)
	app := fiber.New()
	app.Get("/documents/:id/properties", GetProperties(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Properties", mock.Anything, id).Return([]model.Property{
			{Key: model.ClassKey, Value: "Invoice"},
			{Key: model.CreatedByKey, Value: "Admin"},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/properties", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var props []model.Property
		json.NewDecoder(resp.Body).Decode(&props)
		assert.Equal(t, []model.Property{
			{Key: model.ClassKey, Value: "Invoice"},
			{Key: model.CreatedByKey, Value: "Admin"},
		}, props)
	})

	t.Run("empty set is an empty array", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Properties", mock.Anything, id).Return([]model.Property{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/properties", nil))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, "[]", buf.String())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Properties", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id+"/properties", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSetProperty(t *testing.T) {
	mockSvc := new(serviceMocks.MockPropertyService)
	app := fiber.New()
	app.Post("/documents/:id/properties", SetProperty(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("SetProperty", mock.Anything, id, "Customer", "Acme").Return(nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/properties", `{"key":"Customer","value":"Acme"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "success", body["status"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid class", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("SetProperty", mock.Anything, id, model.ClassKey, "Memo").
			Return(fmt.Errorf("%w: unknown class %q", service.ErrInvalidInput, "Memo")).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/properties", `{"key":"Class","value":"Memo"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, resp).Error.Code)
	})

	t.Run("missing document", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("SetProperty", mock.Anything, id, "k", "v").Return(service.ErrNotFound).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/properties", `{"key":"k","value":"v"}`))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		id := uuid.New().String()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/properties", `not json`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTransitionWorkflow(t *testing.T) {
	mockSvc := new(serviceMocks.MockWorkflowService)
	app := fiber.New()
	app.Post("/documents/:id/workflow", TransitionWorkflow(mockSvc))

	t.Run("by new_state", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("TransitionTo", mock.Anything, id, "Review").Return(&model.Document{ID: id, State: "Review"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/workflow", `{"new_state":"Review"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body transitionResponse
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "Review", body.NewState)
		mockSvc.AssertExpectations(t)
	})

	t.Run("by event", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Transition", mock.Anything, id, "approve").Return(&model.Document{ID: id, State: "Approved"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/workflow", `{"event":"approve","new_state":"ignored"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("illegal transition", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("TransitionTo", mock.Anything, id, "Approved").
			Return(nil, &workflow.TransitionError{From: "Draft", To: "Approved"}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/workflow", `{"new_state":"Approved"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "ILLEGAL_TRANSITION", res.Error.Code)
		assert.Contains(t, res.Error.Message, "Draft")
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("TransitionTo", mock.Anything, id, "Review").Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/documents/"+id+"/workflow", `{"new_state":"Review"}`))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListWorkflows(t *testing.T) {
	mockSvc := new(serviceMocks.MockWorkflowService)
	app := fiber.New()
	app.Get("/workflows", ListWorkflows(mockSvc))

	mockSvc.On("Definitions").Return(map[string]workflow.Definition{
		"":         workflow.DefaultDefinition(),
		"Contract": workflow.DefaultDefinition(),
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/workflows", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body workflowsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, workflow.StateDraft, body.Default.Initial)
	assert.Contains(t, body.Classes, "Contract")
	assert.NotContains(t, body.Classes, "")
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	RegisterRoutes(app, Services{
		Ping:       func(context.Context) error { return nil },
		Documents:  new(serviceMocks.MockDocumentService),
		Properties: new(serviceMocks.MockPropertyService),
		Workflows:  new(serviceMocks.MockWorkflowService),
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("health", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
