package engine

import (
	"errors"
	"fmt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

var (
	// ErrNotFound covers both true absence and entities outside the caller's scope.
	ErrNotFound           = repo.ErrNotFound
	ErrProfileNotFound    = errors.New("profile not found")
	ErrNoEligibleMembers  = errors.New("team has no staff members")
	ErrNoTeamForEvent     = errors.New("event has no team")
	ErrNoManagerAssigned  = errors.New("team has no manager assigned")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AIResponseError wraps a failed or unparsable generator call. Raw holds
// whatever text came back, possibly empty.
type AIResponseError struct {
	Raw string
	Err error
}

func (e AIResponseError) Error() string {
	return fmt.Sprintf("ai response invalid: %v", e.Err)
}

func (e AIResponseError) Unwrap() error { return e.Err }

// Kind is the stable error class surfaced to callers.
type Kind string

const (
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindProfileNotFound   Kind = "profile_not_found"
	KindValidation        Kind = "validation_failed"
	KindNoEligibleMembers Kind = "no_eligible_members"
	KindNoTeamForEvent    Kind = "no_team_for_event"
	KindNoManagerAssigned Kind = "no_manager_assigned"
	KindAIResponseInvalid Kind = "ai_response_invalid"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindUnauthenticated   Kind = "unauthenticated"
	KindInternal          Kind = "internal"
)

// KindOf classifies err. Only KindStoreUnavailable is worth retrying.
func KindOf(err error) Kind {
	var forbidden auth.ForbiddenError
	var validation ValidationError
	var aiErr AIResponseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.Is(err, ErrProfileNotFound):
		return KindProfileNotFound
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.As(err, &validation):
		return KindValidation
	case errors.Is(err, ErrNoEligibleMembers):
		return KindNoEligibleMembers
	case errors.Is(err, ErrNoTeamForEvent):
		return KindNoTeamForEvent
	case errors.Is(err, ErrNoManagerAssigned):
		return KindNoManagerAssigned
	case errors.As(err, &aiErr):
		return KindAIResponseInvalid
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthenticated
	case repo.IsUnavailable(err):
		return KindStoreUnavailable
	}
	return KindInternal
}
