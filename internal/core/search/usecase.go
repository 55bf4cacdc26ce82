// Package search implements the read side of the meeting index.
package search

import (
	"context"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
	"meetingindex.app/pkg/validation"
)

// Request selects which meetings to return. The distance fields are all-or-
// nothing: a partial center point is a validation error at the API layer.
type Request struct {
	Distance *ports.DistanceSearch
}

// IsValid checks the distance constraint
func (r Request) IsValid() error {
	if r.Distance == nil {
		return nil
	}
	if !validation.IsValidLatitude(r.Distance.Latitude) {
		return errors.NewValidationError("latitude must be finite and within [-90, 90]")
	}
	if !validation.IsValidLongitude(r.Distance.Longitude) {
		return errors.NewValidationError("longitude must be finite and within [-180, 180]")
	}
	if r.Distance.Distance <= 0 {
		return errors.NewValidationError("distance must be positive")
	}
	return nil
}

type UseCase struct {
	index  ports.MeetingIndex
	logger ports.Logger
}

type UseCaseDependencies struct {
	Index  ports.MeetingIndex
	Logger ports.Logger
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Index == nil {
		return nil, errors.NewValidationError("index is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	return &UseCase{index: deps.Index, logger: deps.Logger}, nil
}

// Search returns the committed meetings matching the request
func (uc *UseCase) Search(ctx context.Context, request Request) ([]meeting.SearchMeeting, error) {
	if err := request.IsValid(); err != nil {
		return nil, err
	}

	results, err := uc.index.Search(ctx, ports.SearchOptions{Distance: request.Distance})
	if err != nil {
		uc.logger.Error("Meeting search failed", ports.F("error", err))
		return nil, err
	}

	uc.logger.Debug("Meeting search finished",
		ports.F("results", len(results)),
		ports.F("filtered", request.Distance != nil))
	return results, nil
}
