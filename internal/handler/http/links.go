package http

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/redirect"
	"Taglink-Backend/internal/service"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LinkService is the link store as seen by the HTTP layer.
type LinkService interface {
	Create(ctx context.Context, acc domain.Account, in service.CreateLinkInput) (*domain.Link, error)
	Get(ctx context.Context, acc domain.Account, id int64) (*domain.Link, error)
	Delete(ctx context.Context, acc domain.Account, id int64) error
	List(ctx context.Context, acc domain.Account) ([]*domain.Link, error)
	Host(ctx context.Context, link *domain.Link) string
}

// LinksHandler serves link CRUD.
type LinksHandler struct {
	links  LinkService
	scheme string
	log    *zap.Logger
}

func NewLinksHandler(links LinkService, scheme string, log *zap.Logger) *LinksHandler {
	return &LinksHandler{
		links:  links,
		scheme: scheme,
		log:    log,
	}
}

// CreateLinkRequest is the body of POST /links.
type CreateLinkRequest struct {
	DestinationURL string `json:"destination_url" example:"https://example.com/landing"`
	UTMSource      string `json:"utm_source,omitempty" example:"newsletter"`
	UTMMedium      string `json:"utm_medium,omitempty" example:"email"`
	UTMCampaign    string `json:"utm_campaign,omitempty" example:"spring_sale"`
	UTMTerm        string `json:"utm_term,omitempty"`
	UTMContent     string `json:"utm_content,omitempty"`
	// Short requests a short code; without it only the tagged URL is produced.
	Short    bool   `json:"short"`
	TeamID   string `json:"team_id,omitempty"`
	DomainID *int64 `json:"domain_id,omitempty"`
}

// LinkResponse describes a stored link.
type LinkResponse struct {
	ID             int64      `json:"id"`
	DestinationURL string     `json:"destination_url"`
	UTM            domain.UTM `json:"utm"`
	TaggedURL      string     `json:"tagged_url"`
	ShortCode      string     `json:"short_code,omitempty"`
	ShortURL       string     `json:"short_url,omitempty"`
	DomainID       *int64     `json:"domain_id,omitempty"`
	TeamID         *string    `json:"team_id,omitempty"`
	Clicks         int64      `json:"clicks"`
	CreatedAt      string     `json:"created_at"`
}

// ListLinksResponse is the body of GET /links.
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

// CreateLink creates a tagged link, optionally with a short code
//
//	@Summary		Create a link
//	@Description	Create a UTM-tagged link. With short=true a short code is allocated on the default or a bound custom domain.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateLinkRequest		true	"Link creation request"
//	@Success		201		{object}	LinkResponse			"Link created"
//	@Failure		400		{object}	ErrorResponse			"Invalid request data"
//	@Failure		401		{object}	ErrorResponse			"Authentication required"
//	@Failure		403		{object}	QuotaExceededResponse	"Quota exceeded or access denied"
//	@Failure		404		{object}	ErrorResponse			"Domain not found"
//	@Router			/links [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create link request", zap.Error(err))
		writeError(w, h.log, "validation_error", "Invalid request format", http.StatusBadRequest)
		return
	}

	link, err := h.links.Create(r.Context(), acc, service.CreateLinkInput{
		DestinationURL: req.DestinationURL,
		UTM: domain.UTM{
			Source:   req.UTMSource,
			Medium:   req.UTMMedium,
			Campaign: req.UTMCampaign,
			Term:     req.UTMTerm,
			Content:  req.UTMContent,
		},
		Short:    req.Short,
		TeamID:   req.TeamID,
		DomainID: req.DomainID,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, h.toResponse(r.Context(), link), http.StatusCreated)
}

// ListLinks returns the caller's personal and team links
//
//	@Summary		List links
//	@Description	List the caller's links and the links of the caller's teams, newest first
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListLinksResponse	"Links"
//	@Failure		401	{object}	ErrorResponse		"Authentication required"
//	@Router			/links [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}

	links, err := h.links.List(r.Context(), acc)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	resp := ListLinksResponse{Links: make([]LinkResponse, 0, len(links))}
	for _, link := range links {
		resp.Links = append(resp.Links, h.toResponse(r.Context(), link))
	}
	writeJSON(w, h.log, resp, http.StatusOK)
}

// GetLink returns a single link
//
//	@Summary		Get a link
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int				true	"Link ID"
//	@Success		200	{object}	LinkResponse	"Link"
//	@Failure		403	{object}	ErrorResponse	"Access denied"
//	@Failure		404	{object}	ErrorResponse	"Link not found"
//	@Router			/links/{id} [get]
func (h *LinksHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	link, err := h.links.Get(r.Context(), acc, id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, h.toResponse(r.Context(), link), http.StatusOK)
}

// DeleteLink deletes a link owned by the caller or one of the caller's teams
//
//	@Summary		Delete a link
//	@Tags			Links
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Link ID"
//	@Success		204	"Link deleted"
//	@Failure		403	{object}	ErrorResponse	"Access denied"
//	@Failure		404	{object}	ErrorResponse	"Link not found"
//	@Router			/links/{id} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	if err := h.links.Delete(r.Context(), acc, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinksHandler) toResponse(ctx context.Context, link *domain.Link) LinkResponse {
	resp := LinkResponse{
		ID:             link.ID,
		DestinationURL: link.DestinationURL,
		UTM:            link.UTM,
		TaggedURL:      redirect.BuildTarget(link.DestinationURL, link.UTM),
		DomainID:       link.BoundDomainID,
		TeamID:         link.TeamID,
		Clicks:         link.Clicks,
		CreatedAt:      link.CreatedAt.UTC().Format(time.RFC3339),
	}
	if link.IsShort() {
		resp.ShortCode = link.Code()
		resp.ShortURL = h.shortURL(h.links.Host(ctx, link), link)
	}
	return resp
}

// Default-domain links live under /r/; custom domains serve codes from the root.
func (h *LinksHandler) shortURL(host string, link *domain.Link) string {
	if link.BoundDomainID == nil {
		return h.scheme + "://" + host + "/r/" + link.Code()
	}
	return h.scheme + "://" + host + "/" + link.Code()
}
