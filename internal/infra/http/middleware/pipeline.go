package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Rejection short-circuits the pipeline with a JSON response.
type Rejection struct {
	Status int
	Body   any
}

func Reject(status int, message string) *Rejection {
	return &Rejection{Status: status, Body: map[string]string{"error": message}}
}

// Stage inspects a request and either passes it on, possibly replaced,
// or rejects it.
type Stage func(r *http.Request) (*http.Request, *Rejection)

// Pipeline applies stages in order before the handler runs. The first
// rejection wins and later stages are skipped.
func Pipeline(stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, stage := range stages {
				passed, rej := stage(r)
				if rej != nil {
					writeRejection(w, rej)
					return
				}
				r = passed
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, rej *Rejection) {
	rejectedRequests.WithLabelValues(strconv.Itoa(rej.Status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rej.Status)
	json.NewEncoder(w).Encode(rej.Body)
}

// MaxBodyStage caps the request body. Reads past the limit fail, which
// the handler reports as invalid JSON.
func MaxBodyStage(limit int64) Stage {
	return func(r *http.Request) (*http.Request, *Rejection) {
		if r.ContentLength > limit {
			return nil, Reject(http.StatusRequestEntityTooLarge, "Request body too large.")
		}
		r.Body = http.MaxBytesReader(nil, r.Body, limit)
		return r, nil
	}
}
