package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	auditdomain "github.com/pullpaylabs/pullpay/internal/audit/domain"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	testclockdomain "github.com/pullpaylabs/pullpay/internal/testclock/domain"
	pkgdb "github.com/pullpaylabs/pullpay/pkg/db"
	"github.com/pullpaylabs/pullpay/pkg/safemath"
)

// Transport-level sentinels. Domain packages carry their own tokens; these
// cover failures that never reach a service.
var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrRateLimited    = errors.New("rate_limited")
)

// ValidationError names the offending field so clients can surface it.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Code
}

func newValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

// errorStatus maps every known sentinel onto its HTTP status. The matched
// sentinel's token is the response body, so clients and log greps see the
// same snake_case name the domain packages declare.
var errorStatus = []struct {
	err    error
	status int
}{
	{ErrUnauthorized, http.StatusUnauthorized},

	{ErrForbidden, http.StatusForbidden},
	{platformdomain.ErrUnauthorizedAdmin, http.StatusForbidden},
	{subscriptiondomain.ErrUnauthorizedSubscription, http.StatusForbidden},
	{merchantdomain.ErrUnauthorizedMerchant, http.StatusForbidden},
	{merchantdomain.ErrUnauthorizedReport, http.StatusForbidden},

	{ErrNotFound, http.StatusNotFound},
	{gorm.ErrRecordNotFound, http.StatusNotFound},
	{platformdomain.ErrNotInitialized, http.StatusNotFound},
	{merchantdomain.ErrMerchantNotFound, http.StatusNotFound},
	{merchantdomain.ErrRegistryNotInitialized, http.StatusNotFound},
	{subscriptiondomain.ErrSubscriptionNotFound, http.StatusNotFound},
	{ledgerdomain.ErrAccountNotFound, http.StatusNotFound},
	{ledgerdomain.ErrEntryNotFound, http.StatusNotFound},
	{apikeydomain.ErrAPIKeyNotFound, http.StatusNotFound},
	{testclockdomain.ErrTestClockNotFound, http.StatusNotFound},

	{platformdomain.ErrAlreadyInitialized, http.StatusConflict},
	{merchantdomain.ErrMerchantExists, http.StatusConflict},
	{merchantdomain.ErrRegistryAlreadyInitialized, http.StatusConflict},
	{merchantdomain.ErrDuplicateReview, http.StatusConflict},
	{ledgerdomain.ErrAccountExists, http.StatusConflict},
	{apikeydomain.ErrAlreadyDisabled, http.StatusConflict},
	{subscriptiondomain.ErrAlreadyPaused, http.StatusConflict},
	{subscriptiondomain.ErrNotPaused, http.StatusConflict},
	{subscriptiondomain.ErrSubscriptionStillActive, http.StatusConflict},
	{testclockdomain.ErrAdvanceInProgress, http.StatusConflict},

	{ErrInvalidRequest, http.StatusBadRequest},
	{platformdomain.ErrFeeTooLow, http.StatusBadRequest},
	{platformdomain.ErrFeeTooHigh, http.StatusBadRequest},
	{platformdomain.ErrInvalidFeeRange, http.StatusBadRequest},
	{platformdomain.ErrInvalidVolumeLimit, http.StatusBadRequest},
	{platformdomain.ErrNoUpdateProvided, http.StatusBadRequest},
	{subscriptiondomain.ErrFrequencyTooShort, http.StatusBadRequest},
	{subscriptiondomain.ErrFrequencyTooLong, http.StatusBadRequest},
	{subscriptiondomain.ErrInvalidMerchantName, http.StatusBadRequest},
	{subscriptiondomain.ErrAmountTooLow, http.StatusBadRequest},
	{subscriptiondomain.ErrNoUpdateProvided, http.StatusBadRequest},
	{merchantdomain.ErrInvalidBusinessName, http.StatusBadRequest},
	{merchantdomain.ErrInvalidCategory, http.StatusBadRequest},
	{merchantdomain.ErrInvalidWebhookURL, http.StatusBadRequest},
	{merchantdomain.ErrInvalidTier, http.StatusBadRequest},
	{merchantdomain.ErrCannotSetCommunityTier, http.StatusBadRequest},
	{merchantdomain.ErrInvalidSuspensionReason, http.StatusBadRequest},
	{merchantdomain.ErrNoUpdateProvided, http.StatusBadRequest},
	{merchantdomain.ErrInvalidRating, http.StatusBadRequest},
	{merchantdomain.ErrInvalidComment, http.StatusBadRequest},
	{merchantdomain.ErrInvalidBadgePrice, http.StatusBadRequest},
	{ledgerdomain.ErrInvalidOwner, http.StatusBadRequest},
	{ledgerdomain.ErrInvalidAmount, http.StatusBadRequest},
	{ledgerdomain.ErrInvalidTransfer, http.StatusBadRequest},
	{apikeydomain.ErrInvalidKeyName, http.StatusBadRequest},
	{apikeydomain.ErrInvalidRole, http.StatusBadRequest},
	{apikeydomain.ErrInvalidIdentity, http.StatusBadRequest},
	{testclockdomain.ErrInvalidClockName, http.StatusBadRequest},
	{testclockdomain.ErrInvalidAdvance, http.StatusBadRequest},
	{auditdomain.ErrInvalidFormat, http.StatusBadRequest},
	{auditdomain.ErrInvalidRange, http.StatusBadRequest},

	// Payment-path and eligibility gates: the request was well formed, the
	// layered limits refused it.
	{subscriptiondomain.ErrSubscriptionInactive, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrSubscriptionPaused, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrPaymentNotDue, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrExceedsTransactionCap, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrExceedsLifetimeCap, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrPriceVarianceExceeded, http.StatusUnprocessableEntity},
	{subscriptiondomain.ErrInsufficientAmount, http.StatusUnprocessableEntity},
	{platformdomain.ErrVelocityExceeded, http.StatusUnprocessableEntity},
	{ledgerdomain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{ledgerdomain.ErrInsufficientAuthorization, http.StatusUnprocessableEntity},
	{ledgerdomain.ErrAssetMismatch, http.StatusUnprocessableEntity},
	{merchantdomain.ErrMustBeVerified, http.StatusUnprocessableEntity},
	{merchantdomain.ErrNoActiveSubscription, http.StatusUnprocessableEntity},
	{merchantdomain.ErrInsufficientPaymentHistory, http.StatusUnprocessableEntity},
	{merchantdomain.ErrInsufficientTotalPaid, http.StatusUnprocessableEntity},
	{merchantdomain.ErrSubscriptionTooNew, http.StatusUnprocessableEntity},

	{ErrRateLimited, http.StatusTooManyRequests},

	{safemath.ErrOverflow, http.StatusInternalServerError},

	{platformdomain.ErrSystemPaused, http.StatusServiceUnavailable},
}

// AbortWithError translates a service error into the JSON error response and
// stops the handler chain. Unknown errors become a generic internal_error;
// the original is attached to the gin context for the request logger.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   ve.Code,
			"field":   ve.Field,
			"message": ve.Message,
		})
		return
	}

	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": m.err.Error()})
			return
		}
	}

	if pkgdb.IsDuplicate(err) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate_record"})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
