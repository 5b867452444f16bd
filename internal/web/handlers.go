package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/JonMunkholm/passgap/internal/logging"
	"github.com/JonMunkholm/passgap/internal/web/templates"
)

const (
	defaultHistoryLimit = 20
	pageHistoryLimit    = 10
)

type healthResponse struct {
	Status   string                   `json:"status"`
	Sessions int                      `json:"sessions"`
	Uploads  core.UploadLimiterStatus `json:"uploads"`
	History  bool                     `json:"history"`
}

type slotsResponse struct {
	Slots []core.SlotSummary `json:"slots"`
}

// missingEntry is what the API shows of a missing record. Passwords and
// notes stay in the export download.
type missingEntry struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Domain   string `json:"domain"`
}

type compareResponse struct {
	RunID   string         `json:"run_id"`
	Summary core.Summary   `json:"summary"`
	Missing []missingEntry `json:"missing"`
}

type historyResponse struct {
	Enabled bool                 `json:"enabled"`
	Runs    []core.ComparisonRun `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Uploads:  s.service.LimiterStatus(),
		History:  s.service.HistoryEnabled(),
	})
}

// handlePage renders the main page. With compare=1 and both slots loaded it
// also runs the comparison.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	id := sessionID(ctx)

	slots, err := s.service.Slots(id)
	if err != nil {
		fail(w, r, err)
		return
	}

	data := templates.PageData{
		Strict:      parseBoolParam(r, "strict"),
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		HistoryOn:   s.service.HistoryEnabled(),
	}
	for i := range slots {
		switch slots[i].Slot {
		case core.SlotA:
			data.SlotA = &slots[i]
		case core.SlotB:
			data.SlotB = &slots[i]
		}
	}

	if parseBoolParam(r, "compare") && data.SlotA != nil && data.SlotB != nil {
		cmp, err := s.service.Compare(ctx, id, data.Strict)
		if err != nil {
			fail(w, r, err)
			return
		}
		data.Comparison = &cmp
	}

	if data.HistoryOn {
		runs, err := s.service.RecentRuns(ctx, pageHistoryLimit)
		if err != nil {
			logging.FromContext(ctx).Warn("page history unavailable", "error", err)
		}
		data.History = runs
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render page failed", "error", err)
	}
}

// handlePageUpload loads a slot from the page form and goes back to the page.
func (s *Server) handlePageUpload(w http.ResponseWriter, r *http.Request) {
	if _, err := s.loadFromRequest(w, r); err != nil {
		fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePageClear(w http.ResponseWriter, r *http.Request) {
	if err := s.clearFromRequest(r); err != nil {
		fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.service.Slots(sessionID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, slotsResponse{Slots: slots})
}

// handleUploadSlot parses the multipart "file" field into a slot and returns
// the slot summary.
func (s *Server) handleUploadSlot(w http.ResponseWriter, r *http.Request) {
	summary, err := s.loadFromRequest(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.clearFromRequest(r); err != nil {
		fail(w, r, err)
		return
	}
	s.handleListSlots(w, r)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)

	cmp, err := s.service.Compare(ctx, sessionID(ctx), parseBoolParam(r, "strict"))
	if err != nil {
		fail(w, r, err)
		return
	}

	missing := make([]missingEntry, len(cmp.Missing))
	for i, rec := range cmp.Missing {
		missing[i] = missingEntry{
			Title:    rec.Title,
			URL:      rec.URL,
			Username: rec.Username,
			Domain:   rec.Domain(),
		}
	}

	writeJSON(w, r, http.StatusOK, compareResponse{
		RunID:   cmp.RunID,
		Summary: cmp.Summary,
		Missing: missing,
	})
}

// handleExport streams the missing entries as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)

	file, err := s.service.Export(ctx, sessionID(ctx), parseBoolParam(r, "strict"))
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	if _, err := io.WriteString(w, file.Body); err != nil {
		logging.FromContext(ctx).Warn("export write failed", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultHistoryLimit)

	runs, err := s.service.RecentRuns(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, historyResponse{
		Enabled: s.service.HistoryEnabled(),
		Runs:    runs,
	})
}

// loadFromRequest streams the "file" part of a multipart upload into the
// slot named in the URL. The body is capped a little above the export size
// limit; the export itself is capped by the service.
func (s *Server) loadFromRequest(w http.ResponseWriter, r *http.Request) (core.SlotSummary, error) {
	slot, err := core.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		return core.SlotSummary{}, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return core.SlotSummary{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return core.SlotSummary{}, errNoFile
		}
		if err != nil {
			return core.SlotSummary{}, fmt.Errorf("read upload: %w", err)
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			part.Close()
			return core.SlotSummary{}, errNoFile
		}

		ctx := WithRequestMetadata(r.Context(), r)
		summary, err := s.service.LoadSlot(ctx, sessionID(ctx), slot, name, part)
		part.Close()
		return summary, err
	}
}

func (s *Server) clearFromRequest(r *http.Request) error {
	slot, err := core.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		return err
	}
	return s.service.ClearSlot(sessionID(r.Context()), slot)
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam accepts strconv.ParseBool values and the checkbox value
// "on". Anything else is false.
func parseBoolParam(r *http.Request, name string) bool {
	val := r.URL.Query().Get(name)
	if val == "on" {
		return true
	}
	b, _ := strconv.ParseBool(val)
	return b
}
