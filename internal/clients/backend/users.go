package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aristath/paperdesk/internal/domain"
)

const (
	agentsPath  = "/comisionistas"
	profilePath = "/usuarios/perfil"
)

// ListAgents lists commission agents, optionally only the active ones
func (c *Client) ListAgents(ctx context.Context, activeOnly bool) ([]domain.Agent, error) {
	var q url.Values
	if activeOnly {
		q = url.Values{"soloActivos": []string{"true"}}
	}

	var dtos []agentDTO
	if err := c.getJSON(ctx, request{
		op:     "list_agents",
		method: http.MethodGet,
		base:   c.usersURL,
		path:   agentsPath + "/listado",
		query:  q,
	}, &dtos); err != nil {
		return nil, err
	}

	agents := make([]domain.Agent, 0, len(dtos))
	for _, dto := range dtos {
		agents = append(agents, dto.toDomain())
	}
	return agents, nil
}

// GetAgent fetches one agent
func (c *Client) GetAgent(ctx context.Context, agentID int64) (*domain.Agent, error) {
	var dto agentDTO
	if err := c.getJSON(ctx, request{
		op:     "get_agent",
		method: http.MethodGet,
		base:   c.usersURL,
		path:   agentsPath + "/" + strconv.FormatInt(agentID, 10),
	}, &dto); err != nil {
		return nil, err
	}
	agent := dto.toDomain()
	return &agent, nil
}

// LinkTrader associates a trader with an agent
func (c *Client) LinkTrader(ctx context.Context, traderID, agentID int64) (string, error) {
	q := url.Values{}
	q.Set("idUsuario", strconv.FormatInt(traderID, 10))
	q.Set("idComisionista", strconv.FormatInt(agentID, 10))

	raw, err := c.do(ctx, request{
		op:     "link_trader",
		method: http.MethodPost,
		base:   c.usersURL,
		path:   agentsPath + "/vincular",
		query:  q,
	})
	if err != nil {
		return "", err
	}

	result, isJSON := decodeResult(raw)
	if !isJSON {
		return textMessage(raw, "Agent linked"), nil
	}
	if !result.ok() {
		return "", &domain.BackendError{Op: "link_trader", Status: http.StatusBadRequest, Message: result.message()}
	}
	if msg := result.message(); msg != "" {
		return msg, nil
	}
	return "Agent linked", nil
}

// AssociatedTraders lists the traders linked to an agent
func (c *Client) AssociatedTraders(ctx context.Context, agentID int64) ([]domain.AssociatedTrader, error) {
	var dtos []associatedTraderDTO
	if err := c.getJSON(ctx, request{
		op:     "associated_traders",
		method: http.MethodGet,
		base:   c.usersURL,
		path:   agentsPath + "/traders/" + strconv.FormatInt(agentID, 10),
	}, &dtos); err != nil {
		return nil, err
	}

	traders := make([]domain.AssociatedTrader, 0, len(dtos))
	for _, dto := range dtos {
		traders = append(traders, dto.toDomain())
	}
	return traders, nil
}

// GetProfile fetches a user's profile
func (c *Client) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var dto profileDTO
	if err := c.getJSON(ctx, request{
		op:     "get_profile",
		method: http.MethodGet,
		base:   c.usersURL,
		path:   profilePath + "/" + strconv.FormatInt(userID, 10),
	}, &dto); err != nil {
		return nil, err
	}
	profile := dto.toDomain()
	return &profile, nil
}

// UpdateProfile writes the editable profile fields. When the backend does
// not echo the profile back, the stored one is fetched again.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, update domain.ProfileUpdate) (*domain.Profile, error) {
	raw, err := c.do(ctx, request{
		op:     "update_profile",
		method: http.MethodPut,
		base:   c.usersURL,
		path:   profilePath + "/" + strconv.FormatInt(userID, 10),
		body: profileUpdateDTO{
			Nombre:   update.FirstName,
			Apellido: update.LastName,
			Email:    update.Email,
			Telefono: update.Phone,
		},
	})
	if err != nil {
		return nil, err
	}

	var dto profileDTO
	if jsonErr := decodeJSON(raw, &dto); jsonErr == nil && dto.ID != 0 {
		profile := dto.toDomain()
		return &profile, nil
	}
	return c.GetProfile(ctx, userID)
}
