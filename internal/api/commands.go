package api

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// sendFormFields are the optional text fields /hvacs/test forwards.
var sendFormFields = []struct {
	name string
	set  func(*hvac.Send, hvac.Value)
}{
	{"power", func(c *hvac.Send, v hvac.Value) { c.Power = v }},
	{"mode", func(c *hvac.Send, v hvac.Value) { c.Mode = v }},
	{"fan", func(c *hvac.Send, v hvac.Value) { c.Fan = v }},
	{"swingv", func(c *hvac.Send, v hvac.Value) { c.SwingV = v }},
	{"swingh", func(c *hvac.Send, v hvac.Value) { c.SwingH = v }},
	{"light", func(c *hvac.Send, v hvac.Value) { c.Light = v }},
	{"encoding", func(c *hvac.Send, v hvac.Value) { c.Encoding = v }},
	{"code", func(c *hvac.Send, v hvac.Value) { c.Code = v }},
}

// handleHVACTest runs a send built from form fields.
func (s *Server) handleHVACTest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "invalid form body")
		return
	}

	cmd := hvac.Send{ID: hvac.TextValue(r.PostForm.Get("id"))}
	for _, f := range sendFormFields {
		if v := r.PostForm.Get(f.name); v != "" {
			f.set(&cmd, hvac.TextValue(v))
		}
	}
	if v := r.PostForm.Get("temp"); v != "" {
		cmd.Temp = formNumber(v)
	}
	if v := r.PostForm.Get("current_temp"); v != "" {
		cmd.CurrentTemp = formNumber(v)
	}

	s.execute(w, r, cmd)
}

// handleRawTest runs a raw transmission built from form fields.
func (s *Server) handleRawTest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "invalid form body")
		return
	}

	cmd := hvac.Raw{Code: hvac.TextValue(r.PostForm.Get("code"))}
	if v := r.PostForm.Get("emitter"); v != "" {
		cmd.Emitter = formNumber(v)
	}
	if v := r.PostForm.Get("encoding"); v != "" {
		cmd.Encoding = hvac.TextValue(v)
	}

	s.execute(w, r, cmd)
}

// handleCommand runs a JSON command document, the same one the line protocol accepts.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "reading request body")
		return
	}

	cmd, err := hvac.Decode(body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.InvalidJSON(hvac.SourceWeb)
		}
		writeJSON(w, http.StatusOK, hvac.ErrorReply(hvac.CodeInvalidJSON))
		return
	}
	s.execute(w, r, cmd)
}

// handleState returns every device's state, initialising untouched devices.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	states, err := s.engine.Snapshot(r.Context())
	if err != nil {
		writeUnavailable(w, "control loop stopped")
		return
	}
	writeJSON(w, http.StatusOK, hvac.StatesResult{States: states})
}

// execute runs cmd on the control loop. Command failures are carried in the
// reply body with a 200, matching what line clients see.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, cmd hvac.Command) {
	reply, err := s.engine.Execute(r.Context(), cmd, hvac.WebOrigin)
	if err != nil {
		s.logger.Warn("web command not executed", "cmd", cmd.Name(), "error", err)
		writeUnavailable(w, "control loop stopped")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// formNumber keeps numeric form input numeric and passes anything else
// through as text so the processor applies its own fallback.
func formNumber(v string) hvac.Value {
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return hvac.NumberValue(f)
	}
	return hvac.TextValue(v)
}
