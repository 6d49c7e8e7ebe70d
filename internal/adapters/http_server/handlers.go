package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_listings/internal/app"
	"hotel_listings/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Mod *app.ModerationService
	Q   *app.QueryService
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// decodeBody reads a JSON object; an empty body is an empty object.
func decodeBody(r *http.Request) (map[string]any, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.Invalid("", "unreadable body")
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, domain.Invalid("", "body must be a JSON object")
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

/********** query parsing **********/

func optInt(q map[string][]string, key string) *int {
	v := strings.TrimSpace(first(q, key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func optFloat(q map[string][]string, key string) *float64 {
	v := strings.TrimSpace(first(q, key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func first(q map[string][]string, key string) string {
	if vs := q[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func intOr0(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func optEnum[T ~string](q map[string][]string, key string, valid func(T) bool) (*T, error) {
	v := strings.TrimSpace(first(q, key))
	if v == "" {
		return nil, nil
	}
	t := T(v)
	if !valid(t) {
		return nil, domain.Invalid(key, "Invalid "+key)
	}
	return &t, nil
}

func parseListFilter(r *http.Request) (app.ListFilter, error) {
	q := r.URL.Query()
	f := app.ListFilter{
		City:     strings.TrimSpace(q.Get("city")),
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		Type:     strings.TrimSpace(q.Get("type")),
		Tags:     domain.SplitTags(q.Get("tags")),
		Star:     optInt(q, "star"),
		MinPrice: optFloat(q, "minPrice"),
		MaxPrice: optFloat(q, "maxPrice"),
		OwnerID:  strings.TrimSpace(q.Get("ownerId")),
		Sort:     domain.Sort(strings.TrimSpace(q.Get("sort"))),
		Page:     intOr0(optInt(q, "page")),
		PageSize: intOr0(optInt(q, "pageSize")),
	}
	var err error
	if f.AuditStatus, err = optEnum(q, "auditStatus", domain.AuditStatus.Valid); err != nil {
		return f, err
	}
	if f.OnlineStatus, err = optEnum(q, "onlineStatus", domain.OnlineStatus.Valid); err != nil {
		return f, err
	}
	if f.UpdateStatus, err = optEnum(q, "updateStatus", domain.UpdateStatus.Valid); err != nil {
		return f, err
	}
	return f, nil
}

/********** public **********/

func (h *Handlers) listPublic(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.QueryPublic(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getPublic(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Q.PublicDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(map[string]any{"hotel": resp})
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write public detail body")
	}
}

/********** merchant **********/

func (h *Handlers) listOwner(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.QueryOwner(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ownerStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.OwnerStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getOwner(w http.ResponseWriter, r *http.Request) {
	v, err := h.Q.OwnerDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotel": v})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Mod.Create(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"hotel": app.ToManageView(l)})
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r)(h.Mod.Update(r.Context(), chi.URLParam(r, "id"), body))
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.Mod.Submit(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handlers) selfOffline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.Mod.SelfOffline(r.Context(), chi.URLParam(r, "id")))
}

/********** admin **********/

func (h *Handlers) listAdmin(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.QueryAdmin(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getAdmin(w http.ResponseWriter, r *http.Request) {
	v, err := h.Q.AdminDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hotel": v})
}

func (h *Handlers) audit(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	action, _ := body["action"].(string)
	reason, _ := body["rejectReason"].(string)
	h.respond(w, r)(h.Mod.Audit(r.Context(), chi.URLParam(r, "id"), app.AuditAction(strings.TrimSpace(action)), reason))
}

func (h *Handlers) publish(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.Mod.Publish(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handlers) offline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.Mod.Offline(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handlers) softDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Mod.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// respond renders a transition result as {"hotel": view}.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request) func(domain.Listing, error) {
	return func(l domain.Listing, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hotel": app.ToManageView(l)})
	}
}
