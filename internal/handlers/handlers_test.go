// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/soundbridge/backend/internal/audio"
	"github.com/soundbridge/backend/internal/middleware"
	"github.com/soundbridge/backend/internal/rules"
	"github.com/soundbridge/backend/internal/services"
	"github.com/soundbridge/backend/internal/validation"
)

type HandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
}

// tierInjector simulates the auth middleware's claims without a real
// token.
func tierInjector(tier string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", "b3f1c9ce-3f07-4f9c-8f2a-111111111111")
		c.Set("user_type", "creator")
		c.Set("subscription_tier", tier)
		c.Next()
	}
}

func (suite *HandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	catalog := rules.DefaultCatalog()
	extractor := audio.NewExtractor()
	engine := validation.NewEngine(catalog, extractor)

	// No database behind these tests; only paths that reject before any
	// storage access are exercised.
	caseService := services.NewCaseService(nil)
	limiter := services.NewUploadLimiter(catalog)
	uploadService := services.NewUploadService(nil, engine, extractor, nil, nil, limiter)

	uploadHandler := NewUploadHandler(nil, catalog, uploadService, 64)
	copyrightHandler := NewCopyrightHandler(caseService)

	suite.router = gin.New()
	v1 := suite.router.Group("/v1")

	uploads := v1.Group("/uploads", tierInjector("free"))
	uploads.POST("/validate", uploadHandler.ValidateUpload)
	uploads.GET("/rules", uploadHandler.GetRules)

	copyright := v1.Group("/copyright", tierInjector("free"))
	copyright.POST("/reports", copyrightHandler.SubmitReport)
	copyright.POST("/dmca", copyrightHandler.SubmitDMCA)
}

func (suite *HandlerTestSuite) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	jsonData, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) TestValidateUploadAccepts() {
	w := suite.postJSON("/v1/uploads/validate", map[string]interface{}{
		"size":      50 * 1024 * 1024,
		"mime_type": "audio/mpeg",
		"metadata": map[string]interface{}{
			"title": "Night Loop",
			"genre": "ambient",
		},
	})

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), response["success"].(bool))

	data := response["data"].(map[string]interface{})
	result := data["validation"].(map[string]interface{})
	assert.True(suite.T(), result["is_valid"].(bool))
}

func (suite *HandlerTestSuite) TestValidateUploadRejectsOversizeWithUpgradePrompt() {
	w := suite.postJSON("/v1/uploads/validate", map[string]interface{}{
		"size":      200 * 1024 * 1024,
		"mime_type": "audio/mpeg",
		"metadata": map[string]interface{}{
			"title": "Night Loop",
			"genre": "ambient",
		},
	})

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	data := response["data"].(map[string]interface{})
	result := data["validation"].(map[string]interface{})
	assert.False(suite.T(), result["is_valid"].(bool))

	prompt := data["upgrade_prompt"].(map[string]interface{})
	assert.True(suite.T(), prompt["show"].(bool))
}

func (suite *HandlerTestSuite) TestValidateUploadMissingBody() {
	w := suite.postJSON("/v1/uploads/validate", map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestGetRulesReturnsTierLimits() {
	req, _ := http.NewRequest("GET", "/v1/uploads/rules", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "free", data["tier"])
	assert.Equal(suite.T(), rules.CatalogVersion, data["version"])

	limits := data["limits"].(map[string]interface{})
	assert.Equal(suite.T(), float64(rules.FreeMaxFileSize), limits["max_file_size"])
}

func (suite *HandlerTestSuite) TestSubmitReportInvalidViolationType() {
	w := suite.postJSON("/v1/copyright/reports", map[string]interface{}{
		"track_id":       "b3f1c9ce-3f07-4f9c-8f2a-222222222222",
		"violation_type": "plagiarism",
		"description":    "This track copies my work.",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestSubmitReportMissingDescription() {
	w := suite.postJSON("/v1/copyright/reports", map[string]interface{}{
		"track_id":       "b3f1c9ce-3f07-4f9c-8f2a-222222222222",
		"violation_type": "copyright_infringement",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestSubmitDMCARejectsMissingStatements() {
	w := suite.postJSON("/v1/copyright/dmca", map[string]interface{}{
		"track_id":                  "b3f1c9ce-3f07-4f9c-8f2a-222222222222",
		"requester_name":            "Jordan Reyes",
		"requester_email":           "legal@rightsholder.example.com",
		"rights_holder":             "Example Records LLC",
		"infringement_description":  "Full reproduction of our master.",
		"original_work_description": "Master recording EX-1042.",
		"good_faith_statement":      true,
		"accuracy_statement":        false,
		"authority_statement":       true,
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestSubmitDMCARejectsBadEmail() {
	w := suite.postJSON("/v1/copyright/dmca", map[string]interface{}{
		"track_id":                  "b3f1c9ce-3f07-4f9c-8f2a-222222222222",
		"requester_name":            "Jordan Reyes",
		"requester_email":           "not-an-email",
		"rights_holder":             "Example Records LLC",
		"infringement_description":  "Full reproduction of our master.",
		"original_work_description": "Master recording EX-1042.",
		"good_faith_statement":      true,
		"accuracy_statement":        true,
		"authority_statement":       true,
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestSubmitDMCAMissingFieldsReturnsFieldErrors() {
	w := suite.postJSON("/v1/copyright/dmca", map[string]interface{}{
		"track_id": "b3f1c9ce-3f07-4f9c-8f2a-222222222222",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), response["success"].(bool))

	// Binding failures carry the per-field breakdown.
	errObj := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "VALIDATION_ERROR", errObj["code"])
	details := errObj["details"].([]interface{})
	assert.NotEmpty(suite.T(), details)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func TestGetRulesWithoutAuthDefaultsToFree(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewUploadHandler(nil, rules.DefaultCatalog(), nil, 64)
	r := gin.New()
	r.GET("/v1/uploads/rules", middleware.OptionalAuth(), handler.GetRules)

	req, _ := http.NewRequest("GET", "/v1/uploads/rules", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "free", data["tier"])
}
