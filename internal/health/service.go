package health

import (
	"context"

	"github.com/rs/zerolog"
)

// Check probes one component. Run returns the status and a message
// describing any issue; the message is dropped for StatusOK.
type Check struct {
	ID   string
	Name string
	Run  func(ctx context.Context) (Status, string)
}

// Service runs the registered checks on demand. A file manager's
// dependencies are all local and cheap to probe, so checks run
// synchronously per request instead of being cached by a background
// loop.
type Service struct {
	checks []Check
	logger zerolog.Logger
}

// NewService creates an empty health service.
func NewService(logger zerolog.Logger) *Service {
	return &Service{
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a check. Registration happens during startup wiring;
// it is not safe to call concurrently with Report.
func (s *Service) Register(c Check) {
	s.checks = append(s.checks, c)
}

// Report runs every check in registration order and rolls the results
// up to the worst status seen.
func (s *Service) Report(ctx context.Context) Report {
	report := Report{Status: StatusOK, Items: make([]Item, 0, len(s.checks))}

	for _, check := range s.checks {
		status, message := check.Run(ctx)
		if status == StatusOK {
			message = ""
		} else {
			s.logger.Warn().
				Str("check", check.ID).
				Str("status", string(status)).
				Str("message", message).
				Msg("health check not ok")
		}

		report.Items = append(report.Items, Item{
			ID:      check.ID,
			Name:    check.Name,
			Status:  status,
			Message: message,
		})
		if worse(status, report.Status) {
			report.Status = status
		}
	}

	return report
}
