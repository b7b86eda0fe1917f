package sla

import (
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrConfigurationUnavailable marks failures to read SLA configuration, as
// opposed to configuration that is simply absent.
var ErrConfigurationUnavailable = errors.New("sla configuration unavailable")

// Configuration sources named in ConfigurationUnavailableError.
const (
	SourceRules      = "rules"
	SourceCategories = "categories"
	SourcePriorities = "priorities"
)

// ConfigurationUnavailableError wraps a repository failure.
type ConfigurationUnavailableError struct {
	Source string
	Err    error
}

func (e *ConfigurationUnavailableError) Error() string {
	return fmt.Sprintf("sla configuration unavailable (%s): %v", e.Source, e.Err)
}

func (e *ConfigurationUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrConfigurationUnavailable.
func (e *ConfigurationUnavailableError) Is(target error) bool {
	return target == ErrConfigurationUnavailable
}

func unavailable(source string, err error) error {
	return &ConfigurationUnavailableError{Source: source, Err: err}
}

// InvalidTicketStateError flags tickets whose status and resolution
// timestamp disagree. It is a data-quality signal, never an evaluation failure.
type InvalidTicketStateError struct {
	TicketID string
	Status   domain.TicketStatus
	Reason   string
}

func (e *InvalidTicketStateError) Error() string {
	return fmt.Sprintf("ticket %s in status %q: %s", e.TicketID, e.Status, e.Reason)
}

// CheckTicketState reports inconsistencies between Status and ResolvedAt.
func CheckTicketState(t *domain.Ticket) error {
	switch {
	case t.Status.IsTerminal() && t.ResolvedAt == nil:
		return &InvalidTicketStateError{TicketID: t.ID, Status: t.Status, Reason: "terminal status without resolution time"}
	case !t.Status.IsTerminal() && t.ResolvedAt != nil:
		return &InvalidTicketStateError{TicketID: t.ID, Status: t.Status, Reason: "resolution time set on non-terminal status"}
	}
	return nil
}
