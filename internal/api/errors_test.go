package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusPredicates(t *testing.T) {
	notFound := fmt.Errorf("get image: %w", &APIError{Status: http.StatusNotFound, Code: "not_found"})
	if !IsNotFound(notFound) {
		t.Fatal("expected wrapped 404 to be not found")
	}
	if IsUploadRejected(notFound) {
		t.Fatal("404 is not an upload rejection")
	}

	for _, status := range []int{http.StatusPreconditionFailed, http.StatusUnsupportedMediaType} {
		if !IsUploadRejected(&APIError{Status: status}) {
			t.Fatalf("expected %d to be an upload rejection", status)
		}
	}

	bulk := &BulkError{APIError: APIError{Status: http.StatusInternalServerError}}
	if IsNotFound(bulk) || IsUploadRejected(bulk) {
		t.Fatal("bulk 500 matched a client predicate")
	}
	if IsNotFound(errors.New("dial tcp: refused")) {
		t.Fatal("plain error matched")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	cases := []struct {
		err  *APIError
		want string
	}{
		{&APIError{Code: "too_large", Message: "upload rejected"}, "too_large: upload rejected"},
		{&APIError{Message: "boom"}, "boom"},
		{&APIError{Status: 502}, "api error: 502"},
		{&APIError{}, "api error"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
