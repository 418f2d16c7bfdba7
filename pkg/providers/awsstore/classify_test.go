package awsstore

import (
	"errors"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"

	"github.com/EliuX/cloud-tools/pkg/transfer"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func responseError(status int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
		Err:      errors.New("request failed"),
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, transfer.StatusOK, classify(nil).Status)
}

func TestClassifyRetryableCodes(t *testing.T) {
	for _, code := range []string{
		"SlowDown",
		"Throttling",
		"TooManyRequestsException",
		"ProvisionedThroughputExceededException",
		"ServiceUnavailable",
		"InternalError",
	} {
		out := classify(apiError(code))
		assert.Equal(t, transfer.StatusRetryable, out.Status, code)
	}
}

func TestClassifyConflictCodes(t *testing.T) {
	for _, code := range []string{
		"BucketAlreadyExists",
		"BucketAlreadyOwnedByYou",
		"ConditionalCheckFailedException",
	} {
		out := classify(apiError(code))
		assert.Equal(t, transfer.StatusTerminal, out.Status, code)
		assert.Contains(t, out.Reason, "already exists", code)
	}
}

func TestClassifyUnknownCodeIsTerminal(t *testing.T) {
	out := classify(apiError("AccessDenied"))
	assert.Equal(t, transfer.StatusTerminal, out.Status)
}

func TestClassifyHTTPStatus(t *testing.T) {
	assert.Equal(t, transfer.StatusRetryable, classify(responseError(429)).Status)
	assert.Equal(t, transfer.StatusRetryable, classify(responseError(503)).Status)
	assert.Equal(t, transfer.StatusTerminal, classify(responseError(403)).Status)
}

func TestClassifyPlainErrorIsTerminal(t *testing.T) {
	out := classify(errors.New("dial tcp: connection refused"))
	assert.Equal(t, transfer.StatusTerminal, out.Status)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(apiError("NoSuchBucket")))
	assert.True(t, isNotFound(apiError("ResourceNotFoundException")))
	assert.True(t, isNotFound(apiError("AWS.SimpleQueueService.NonExistentQueue")))
	assert.True(t, isNotFound(responseError(404)))

	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(apiError("AccessDenied")))
	assert.False(t, isNotFound(responseError(500)))
}
