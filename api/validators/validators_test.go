package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
)

type listingInput struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"omitempty,email"`
	Qty   int    `json:"qty" validate:"gte=1"`
}

func decode(body string) (listingInput, error) {
	var in listingInput
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(req, &in)
	return in, err
}

func TestSanitizeString(t *testing.T) {
	tests := map[string]struct {
		in   string
		max  int
		want string
	}{
		"trims":            {"  maize  ", 0, "maize"},
		"collapses spaces": {"yellow \t\n maize", 0, "yellow maize"},
		"drops control":    {"ma\x00ize", 0, "maize"},
		"rune truncation":  {"\u00e0gb\u00e0do oka", 6, "\u00e0gb\u00e0do"},
		"trailing space":   {"cassava flour", 8, "cassava"},
	}
	for name, tt := range tests {
		if got := SanitizeString(tt.in, tt.max); got != tt.want {
			t.Fatalf("%s: expected %q got %q", name, tt.want, got)
		}
	}
}

func TestDecodeJSONBodyValid(t *testing.T) {
	in, err := decode(`{"name":"maize","qty":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Name != "maize" || in.Qty != 3 {
		t.Fatalf("unexpected decode result %+v", in)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"unknown field": `{"name":"maize","qty":1,"price":2}`,
		"trailing data": `{"name":"maize","qty":1}{"name":"x"}`,
		"wrong type":    `{"name":"maize","qty":"three"}`,
		"missing name":  `{"qty":1}`,
		"bad email":     `{"name":"maize","qty":1,"email":"nope"}`,
		"too large":     `{"name":"` + strings.Repeat("a", maxBodyBytes) + `","qty":1}`,
	}
	for name, body := range tests {
		_, err := decode(body)
		var typed *pkgerrors.Error
		if !errors.As(err, &typed) || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error got %v", name, err)
		}
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	_, err := decode(`{"name":"a very long crop name","qty":0}`)
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	if details["name"] != "must be at most 10" || details["qty"] != "must be greater than or equal to 1" {
		t.Fatalf("unexpected details %v", details)
	}
}
