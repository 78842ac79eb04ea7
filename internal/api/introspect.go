package api

import (
	"encoding/json"
	"net/http"
)

type introspectRequest struct {
	Connection connectionPayload `json:"connection"`
}

func handleIntrospect(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Introspector == nil {
		writeError(w, r, http.StatusNotImplemented, "INTROSPECT_NOT_CONFIGURED", "introspector dependency is not configured", false)
		return
	}

	var req introspectRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid introspect request body", false)
		return
	}

	conn, err := req.Connection.toConfig()
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	result, err := deps.Introspector.Introspect(r.Context(), conn)
	if err != nil {
		writeCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
