package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/mail"
	"strings"

	"github.com/a-h/templ"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/pipeline"
)

const invalidEmailMessage = "Please enter a valid email address."

type cronResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Report  *pipeline.Report `json:"report,omitempty"`
}

type subscribeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleAPINews returns up to 50 articles for ?country=, newest first.
// With live=1 the feeds are fetched directly instead of read from the store.
func (s *Server) handleAPINews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	country := news.NormalizeCountry(q.Get("country"))

	var (
		articles []*database.Article
		err      error
	)
	if q.Get("live") == "1" || q.Get("live") == "true" {
		articles, err = s.news.Live(ctx, country)
	} else {
		articles, err = s.news.Latest(ctx, country)
	}
	if err != nil {
		slog.Error("failed to load news", "country", country, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load news"})
		return
	}
	if articles == nil {
		articles = []*database.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// handleAPITrending returns the trending hashtags.
func (s *Server) handleAPITrending(w http.ResponseWriter, r *http.Request) {
	tags, err := s.news.Trending(r.Context())
	if err != nil {
		slog.Error("failed to load trending tags", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load trending tags"})
		return
	}
	if tags == nil {
		tags = []news.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// handleCron runs one fetch cycle and reports its outcome.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	slog.Info("starting fetch cycle", "trigger", "cron")

	report, err := s.cycle.Run(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrCycleRunning):
		writeJSON(w, http.StatusConflict, cronResponse{Message: "A fetch is already in progress."})
	case err != nil:
		slog.Error("cron fetch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, cronResponse{Message: "Cron job failed."})
	default:
		writeJSON(w, http.StatusOK, cronResponse{Success: true, Message: report.Message(), Report: report})
	}
}

// handleFetchStatus returns the current progress snapshot.
func (s *Server) handleFetchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cycle.Progress().GetCurrent())
}

// handleFetchEvents streams progress updates as server-sent events.
func (s *Server) handleFetchEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	progress := s.cycle.Progress()
	ch := progress.Subscribe()
	defer progress.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-ch:
			data, err := json.Marshal(update)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleSubscribe records a newsletter sign-up from a form post or a JSON
// body. HTML clients get a fragment, JSON clients a status object.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSON(r)

	email, err := readEmail(r, asJSON)
	if err != nil {
		s.subscribeResult(w, r, asJSON, http.StatusBadRequest, false, invalidEmailMessage)
		return
	}

	sub, err := s.store.CreateSubscription(r.Context(), email)
	if err != nil {
		slog.Error("failed to save subscription", "error", err)
		s.subscribeResult(w, r, asJSON, http.StatusInternalServerError, false, "Something went wrong. Please try again later.")
		return
	}

	slog.Info("new subscription", "id", sub.ID)
	msg := fmt.Sprintf("Thank you for subscribing! A confirmation has been sent to %s.", sub.Email)
	s.subscribeResult(w, r, asJSON, http.StatusOK, true, msg)
}

func (s *Server) subscribeResult(w http.ResponseWriter, r *http.Request, asJSON bool, status int, ok bool, message string) {
	if asJSON {
		state := "success"
		if !ok {
			state = "error"
		}
		writeJSON(w, status, subscribeResponse{Status: state, Message: message})
		return
	}
	templ.Handler(SubscribeResult(ok, message), templ.WithStatus(status)).ServeHTTP(w, r)
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func readEmail(r *http.Request, asJSON bool) (string, error) {
	var raw string
	if asJSON {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
			return "", err
		}
		raw = body.Email
	} else {
		raw = r.PostFormValue("email")
	}
	return validateEmail(raw)
}

// validateEmail accepts a bare address with a dotted domain.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", err
	}
	if addr.Address != email || addr.Name != "" {
		return "", errors.New("display names are not accepted")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", errors.New("domain must contain a dot")
	}
	return email, nil
}
