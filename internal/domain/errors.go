package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrFetchFailed is returned when a page could not be retrieved
	ErrFetchFailed = errors.New("page fetch failed")

	// ErrSoftBlocked is returned when a retailer served a captcha or robot-check page
	ErrSoftBlocked = errors.New("page soft-blocked")

	// ErrSearchFailed is returned when the search provider could not produce results
	ErrSearchFailed = errors.New("search failed")

	// ErrNoIngredients is returned when no ingredient list could be extracted from a page
	ErrNoIngredients = errors.New("no ingredient list found")

	// ErrExtractionRejected is returned when an assisted extraction fails validation
	ErrExtractionRejected = errors.New("extraction rejected by validator")

	// ErrReasoningFailure is returned when the reasoning service request fails
	ErrReasoningFailure = errors.New("reasoning service request failed")

	// ErrMalformedResponse is returned when the reasoning service returns unusable output
	ErrMalformedResponse = errors.New("malformed reasoning service response")

	// ErrProductNotFound is returned when a database lookup has no match for the barcode
	ErrProductNotFound = errors.New("product not found in database")

	// ErrUSDAAPIFailure is returned when USDA API request fails
	ErrUSDAAPIFailure = errors.New("USDA API request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrVerificationCancelled is returned when the caller cancels a verification in flight
	ErrVerificationCancelled = errors.New("verification cancelled")
)
