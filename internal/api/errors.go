package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Request bodies larger than this are cut off mid-decode.
const maxBodySize = 1 << 20

// All failure responses share one envelope: {"error":{"code","message"}}.
// The code is a stable machine-readable token; the message is for humans.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = message
	writeJSON(w, statusCode, env)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal_error","message":"response encoding failed"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// readJSON decodes the request body into v. An empty body is reported the
// same way as malformed JSON so handlers have a single rejection path.
func readJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if errors.Is(err, io.EOF) {
		return errors.New("empty request body")
	}
	return err
}
