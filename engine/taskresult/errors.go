package taskresult

import (
	"fmt"
	"net/http"

	"github.com/spiffworkflow/backend/engine/core"
)

const (
	ErrNoResultsBackendCode      = "no_results_backend"
	ErrUnsupportedBackendCode    = "unsupported_backend"
	ErrTooManyEntriesCode        = "too_many_entries"
	ErrRedisCode                 = "redis_error"
	ErrS3Code                    = "s3_error"
	ErrS3BucketNotConfiguredCode = "s3_bucket_not_configured"
)

func errNoResultsBackend() *core.APIError {
	return core.NewAPIError(
		http.StatusInternalServerError,
		ErrNoResultsBackendCode,
		"No Celery results backend configured.",
	)
}

func errUnsupportedBackend() *core.APIError {
	return core.NewAPIError(
		http.StatusInternalServerError,
		ErrUnsupportedBackendCode,
		"The specified backend is not supported.",
	)
}

func errTooManyEntries(count int) *core.APIError {
	return core.NewAPIError(
		http.StatusBadRequest,
		ErrTooManyEntriesCode,
		fmt.Sprintf("There are too many redis entries. You probably shouldn't use this api method. count %d", count),
	)
}

func errRedis(err error) *core.APIError {
	return core.WrapAPIError(http.StatusInternalServerError, ErrRedisCode, core.RedactError(err), err)
}

func errS3(err error) *core.APIError {
	return core.WrapAPIError(http.StatusInternalServerError, ErrS3Code, core.RedactError(err), err)
}

func errS3BucketNotConfigured() *core.APIError {
	return core.NewAPIError(
		http.StatusInternalServerError,
		ErrS3BucketNotConfiguredCode,
		"No S3 bucket configured for the Celery results backend.",
	)
}
