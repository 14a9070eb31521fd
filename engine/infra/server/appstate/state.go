package appstate

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/spiffworkflow/backend/engine/auth/openid"
	"github.com/spiffworkflow/backend/engine/taskresult"
	"github.com/spiffworkflow/backend/pkg/config"
)

const stateKey = "app_state"

// BaseDeps are the long-lived collaborators shared by every handler.
type BaseDeps struct {
	Config    *config.Config
	Results   *taskresult.Service
	Endpoints *openid.EndpointCache
}

func NewBaseDeps(cfg *config.Config, results *taskresult.Service, endpoints *openid.EndpointCache) BaseDeps {
	return BaseDeps{Config: cfg, Results: results, Endpoints: endpoints}
}

type State struct {
	BaseDeps
}

func NewState(deps BaseDeps) (*State, error) {
	if deps.Config == nil {
		return nil, errors.New("app state: config is required")
	}
	if deps.Results == nil {
		return nil, errors.New("app state: task result service is required")
	}
	if deps.Endpoints == nil {
		return nil, errors.New("app state: endpoint cache is required")
	}
	return &State{BaseDeps: deps}, nil
}

// StateMiddleware exposes state to handlers through the gin context.
func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(stateKey, state)
		c.Next()
	}
}

func GetState(c *gin.Context) (*State, error) {
	value, exists := c.Get(stateKey)
	if !exists {
		return nil, fmt.Errorf("app state not found in gin context")
	}
	state, ok := value.(*State)
	if !ok || state == nil {
		return nil, fmt.Errorf("app state has unexpected type %T", value)
	}
	return state, nil
}
