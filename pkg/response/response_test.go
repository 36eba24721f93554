package response

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	expiredAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	got := Expired(expiredAt)

	assert.Equal(t, "Short URL has expired", got.Error)
	if assert.NotNil(t, got.ExpiredAt) {
		assert.Equal(t, expiredAt, *got.ExpiredAt)
	}
}

func TestGetValidationErrors(t *testing.T) {
	type req struct {
		URL       string `json:"url" validate:"required,url"`
		ShortCode string `json:"shortcode" validate:"omitempty,alphanum,max=20"`
	}

	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	tests := []struct {
		name string
		req  req
		want []ValidationError
	}{
		{
			name: "not validation error",
			req: req{
				URL:       "https://example.com",
				ShortCode: "abc123",
			},
		},
		{
			name: "one error",
			req: req{
				URL: "",
			},
			want: []ValidationError{
				{
					Field:   "url",
					Message: "This field is required.",
				},
			},
		},
		{
			name: "two errors",
			req: req{
				URL:       "not url",
				ShortCode: "abc-123",
			},
			want: []ValidationError{
				{
					Field:   "url",
					Message: "Invalid url.",
				},
				{
					Field:   "shortcode",
					Message: "Only letters and digits are allowed.",
				},
			},
		},
		{
			name: "too long",
			req: req{
				URL:       "https://example.com",
				ShortCode: strings.Repeat("a", 21),
			},
			want: []ValidationError{
				{
					Field:   "shortcode",
					Message: "Value is too long.",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.req)
			got := getValidationErrors(err)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidation(t *testing.T) {
	got := Validation(nil)

	assert.Equal(t, "Validation error", got.Error)
	assert.Nil(t, got.Errors)
}

func TestError_WithValidation(t *testing.T) {
	type req struct {
		URL string `validate:"required,url"`
	}

	base := New("Invalid URL format")

	got := base.WithValidation(validator.New().Struct(req{URL: "not url"}))

	assert.Equal(t, "Invalid URL format", got.Error)
	assert.Equal(t, []ValidationError{{Field: "URL", Message: "Invalid url."}}, got.Errors)
	assert.Nil(t, base.Errors)
}
