package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/careerhub/hub/infrastructure/httputil"
	"github.com/careerhub/hub/infrastructure/logging"
	"github.com/careerhub/hub/internal/events"
)

// eventsHandler is hand-written rather than run through the generic
// wrappers: it reads a path parameter and a handful of optional query
// parameters instead of a JSON body.
func eventsHandler(store events.Store, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authUserID, ok := httputil.RequireUserID(w, r)
		if !ok {
			return
		}
		pathUserID := mux.Vars(r)["user_id"]
		if pathUserID != authUserID {
			httputil.Forbidden(w, "cannot read another user's event history")
			return
		}

		since, until, err := parseWindow(r.URL.Query())
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		var types []string
		if raw := r.URL.Query().Get("types"); raw != "" {
			types = strings.Split(raw, ",")
		}

		evts, err := store.UserEvents(r.Context(), authUserID, since, until, types)
		if err != nil {
			if logger != nil {
				logger.WithContext(r.Context()).WithError(err).Error("failed to load user events")
			}
			httputil.InternalError(w, "failed to load events")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": evts})
	}
}

func parseWindow(q map[string][]string) (time.Time, time.Time, error) {
	var since, until time.Time
	if v := first(q, "since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errBadTimestamp("since")
		}
		since = t
	} else {
		since = time.Now().UTC().Add(-events.DefaultWindow())
	}
	if v := first(q, "until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errBadTimestamp("until")
		}
		until = t
	} else {
		until = time.Now().UTC()
	}
	return since, until, nil
}

func first(q map[string][]string, key string) string {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return ""
	}
	return vs[0]
}

type errBadTimestamp string

func (e errBadTimestamp) Error() string {
	return string(e) + " must be an RFC3339 timestamp"
}
