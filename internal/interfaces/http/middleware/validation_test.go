package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	Account string `json:"account" validate:"required"`
}

type testBody struct {
	Period string     `json:"period" validate:"required,len=7"`
	Lines  []testLine `json:"lines" validate:"required,min=1,dive"`
	Mode   string     `json:"mode" validate:"omitempty,oneof=block warn"`
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var body testBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("rejected fields are reported by json path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"period":"2024-1","lines":[{}],"mode":"soft"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp struct {
			Error   string `json:"error"`
			Details struct {
				Fields []dto.ValidationDetail `json:"fields"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_INPUT", resp.Error)

		fields := make(map[string]string)
		for _, f := range resp.Details.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "Must be exactly 7 characters", fields["period"])
		assert.Equal(t, "This field is required", fields["lines[0].account"])
		assert.Equal(t, "Must be one of: block warn", fields["mode"])
	})

	t.Run("valid body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"period":"2024-01","lines":[{"account":"1001"}]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationDetails(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))

	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	err := v.Struct(testBody{Period: "2024-01"})
	details := ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "lines", details[0].Field)
	assert.Equal(t, "This field is required", details[0].Message)
}
