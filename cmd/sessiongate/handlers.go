package main

import (
	"encoding/json"
	"net/http"

	"github.com/vyrodovalexey/sessiongate/internal/middleware"
	"github.com/vyrodovalexey/sessiongate/internal/subject"
)

// subjectView is the JSON rendering of one installed subject.
type subjectView struct {
	System        string   `json:"system"`
	Authenticated bool     `json:"authenticated"`
	Principal     string   `json:"principal,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Session       string   `json:"session,omitempty"`
}

// whoamiResponse describes the caller as seen by every configured system.
type whoamiResponse struct {
	ClientIP string        `json:"clientIp"`
	Secure   bool          `json:"secure"`
	Scheme   string        `json:"scheme,omitempty"`
	Subjects []subjectView `json:"subjects"`
}

func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := whoamiResponse{
		ClientIP: middleware.ClientIP(r),
		Subjects: []subjectView{},
	}

	if sc, ok := subject.SecurityContextFromContext(ctx); ok {
		resp.Secure = sc.IsSecure()
		resp.Scheme, _ = sc.AuthenticationScheme()
	}

	if reg, ok := subject.RegistryFromContext(ctx); ok {
		for _, s := range reg.Subjects() {
			view := subjectView{
				System:        s.System(),
				Authenticated: s.IsAuthenticated(),
				Roles:         s.Roles(),
			}
			if p, ok := s.Principal(); ok {
				view.Principal = p.ID
			}
			if stored := s.Session(); stored != nil {
				view.Session = stored.ID
			}
			resp.Subjects = append(resp.Subjects, view)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(middleware.HeaderContentType, middleware.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
