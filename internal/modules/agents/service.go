// Package agents links traders with the commission agents who issue their orders.
package agents

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/paperdesk/internal/domain"
	"github.com/aristath/paperdesk/internal/events"
	"github.com/aristath/paperdesk/internal/session"
)

// Service handles agent directory and trader association operations
type Service struct {
	backend      domain.AgentBackend
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewService creates a new agents service
func NewService(backend domain.AgentBackend, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		backend:      backend,
		eventManager: eventManager,
		log:          log.With().Str("service", "agents").Logger(),
	}
}

// List returns the agent directory
func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Agent, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, err
	}

	agents, err := s.backend.ListAgents(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	// The backend ignores the filter on some deployments
	if activeOnly {
		agents = filterAgents(agents)
	}
	return agents, nil
}

// Get returns one agent
func (s *Service) Get(ctx context.Context, agentID int64) (*domain.Agent, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, err
	}
	if agentID <= 0 {
		return nil, domain.NewValidationError("agent_id", "agent_id must be positive")
	}
	return s.backend.GetAgent(ctx, agentID)
}

// Link associates the acting trader with an agent. Inactive agents are
// refused before the backend is asked.
func (s *Service) Link(ctx context.Context, agentID int64) (string, error) {
	sess, err := session.RequireRole(ctx, domain.RoleTrader)
	if err != nil {
		return "", err
	}

	agent, err := s.Get(ctx, agentID)
	if err != nil {
		return "", err
	}
	if !agent.Active {
		return "", domain.NewValidationError("agent_id", fmt.Sprintf("agent %s is not active", agent.FullName()))
	}

	message, err := s.backend.LinkTrader(ctx, sess.UserID, agentID)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Int64("trader_id", sess.UserID).
		Int64("agent_id", agentID).
		Msg("Trader linked to agent")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("agents", &events.AgentLinkedData{
			TraderID: sess.UserID,
			AgentID:  agentID,
		})
	}
	return message, nil
}

// AssociatedTraders lists the traders linked to the acting agent
func (s *Service) AssociatedTraders(ctx context.Context, activeOnly bool) ([]domain.AssociatedTrader, error) {
	sess, err := session.RequireRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, err
	}

	traders, err := s.backend.AssociatedTraders(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return traders, nil
	}

	active := make([]domain.AssociatedTrader, 0, len(traders))
	for _, t := range traders {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

func filterAgents(agents []domain.Agent) []domain.Agent {
	active := make([]domain.Agent, 0, len(agents))
	for _, a := range agents {
		if a.Active {
			active = append(active, a)
		}
	}
	return active
}
