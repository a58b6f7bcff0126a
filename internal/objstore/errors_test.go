package objstore

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"404 status", minio.ErrorResponse{StatusCode: 404}, ErrNotFound},
		{"NoSuchKey", minio.ErrorResponse{Code: "NoSuchKey"}, ErrNotFound},
		{"412", minio.ErrorResponse{StatusCode: 412, Code: "PreconditionFailed"}, ErrPreconditionFailed},
		{"409", minio.ErrorResponse{StatusCode: 409}, ErrPreconditionFailed},
		{"403", minio.ErrorResponse{StatusCode: 403, Code: "AccessDenied"}, ErrPermissionDenied},
		{"500", minio.ErrorResponse{StatusCode: 500}, ErrTransient},
		{"503", minio.ErrorResponse{StatusCode: 503}, ErrTransient},
		{"429", minio.ErrorResponse{StatusCode: 429}, ErrTransient},
		{"no response", errors.New("connection reset"), ErrTransient},
		{"400", minio.ErrorResponse{StatusCode: 400, Code: "InvalidArgument"}, ErrFatal},
		{"canceled", context.Canceled, ErrTransient},
		{"deadline", context.DeadlineExceeded, ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("get", "k", tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("classify = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "put", Key: "pages/a.md", Err: ErrPreconditionFailed}
	want := `objstore: put "pages/a.md": precondition failed`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsPreconditionFailed(err) {
		t.Error("IsPreconditionFailed = false, want true")
	}
}
