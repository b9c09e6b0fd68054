package api

import (
	"net/http"

	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
)

// ConfigView is the public part of the configuration. Credentials, broker
// and database settings are never rendered.
type ConfigView struct {
	Hostname   string              `json:"hostname"`
	LinePort   int                 `json:"line_port"`
	MaxClients int                 `json:"max_clients"`
	Auth       bool                `json:"auth"`
	Emitters   []EmitterView       `json:"emitters"`
	HVACs      []config.HVACConfig `json:"hvacs"`
}

// EmitterView describes one configured emitter.
type EmitterView struct {
	Index     int    `json:"index"`
	GPIO      int    `json:"gpio"`
	Transport string `json:"transport"`
	Protocols bool   `json:"protocols"`
}

// NewConfigView renders cfg for /api/config.
func NewConfigView(cfg *config.Config) ConfigView {
	v := ConfigView{
		Hostname:   cfg.Hostname(),
		LinePort:   cfg.Line.Port,
		MaxClients: cfg.Line.MaxClients,
		Auth:       cfg.API.Auth.Enabled(),
		Emitters:   make([]EmitterView, 0, len(cfg.Emitters)),
		HVACs:      make([]config.HVACConfig, 0, len(cfg.HVACs)),
	}
	for i, e := range cfg.Emitters {
		v.Emitters = append(v.Emitters, EmitterView{
			Index:     i,
			GPIO:      e.GPIO,
			Transport: e.Transport,
			Protocols: !e.DisableProtocols,
		})
	}
	v.HVACs = append(v.HVACs, cfg.HVACs...)
	return v
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if s.site == nil {
		writeUnavailable(w, "configuration not available")
		return
	}
	cfg := s.site()
	if cfg == nil {
		writeUnavailable(w, "configuration not available")
		return
	}
	writeJSON(w, http.StatusOK, NewConfigView(cfg))
}
