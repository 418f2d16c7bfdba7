package awsstore

import (
	"errors"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Transient service-side error codes, retried with backoff.
var retryableCodes = map[string]bool{
	"SlowDown":                               true,
	"Throttling":                             true,
	"ThrottlingException":                    true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"ProvisionedThroughputExceededException": true,
	"ServiceUnavailable":                     true,
	"InternalError":                          true,
	"InternalServerError":                    true,
	"RequestTimeout":                         true,
}

// Conflict codes: the target already exists on create. Terminal, but
// expected on idempotent reruns.
var conflictCodes = map[string]bool{
	"BucketAlreadyExists":             true,
	"BucketAlreadyOwnedByYou":         true,
	"QueueNameExists":                 true,
	"ConditionalCheckFailedException": true,
}

var notFoundCodes = map[string]bool{
	"NotFound":                                true,
	"NoSuchBucket":                            true,
	"NoSuchKey":                               true,
	"NoSuchTagSet":                            true,
	"ResourceNotFoundException":               true,
	"AWS.SimpleQueueService.NonExistentQueue": true,
	"QueueDoesNotExist":                       true,
}

// classify maps an SDK error to the engine's outcome taxonomy: 429/5xx
// retryable, conflicts and everything else terminal.
func classify(err error) transfer.Outcome {
	if err == nil {
		return transfer.OK()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if retryableCodes[code] {
			return transfer.Retryable(err.Error())
		}
		if conflictCodes[code] {
			return transfer.Terminal("already exists: " + err.Error())
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return transfer.Classify(respErr.HTTPStatusCode(), err.Error())
	}

	return transfer.Terminal(err.Error())
}

// isNotFound reports whether err is the store's negative existence
// signal. Used by probes, where absence is not an error.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && notFoundCodes[apiErr.ErrorCode()] {
		return true
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}

	return false
}
