package http

import (
	"Taglink-Backend/internal/dnscheck"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/service"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DomainService is the domain registry as seen by the HTTP layer.
type DomainService interface {
	Register(ctx context.Context, acc domain.Account, hostname string) (*domain.Domain, error)
	Instructions(d *domain.Domain) service.DNSInstructions
	Get(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error)
	List(ctx context.Context, acc domain.Account) ([]*domain.Domain, error)
	RegenerateToken(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error)
	Verify(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error)
	Delete(ctx context.Context, acc domain.Account, id int64) error
}

// DomainsHandler serves the custom domain registry.
type DomainsHandler struct {
	domains DomainService
	log     *zap.Logger
}

func NewDomainsHandler(domains DomainService, log *zap.Logger) *DomainsHandler {
	return &DomainsHandler{
		domains: domains,
		log:     log,
	}
}

// RegisterDomainRequest is the body of POST /domains.
type RegisterDomainRequest struct {
	Hostname string `json:"hostname" example:"go.example.com"`
}

// DomainResponse describes a domain together with the DNS records that verify it.
type DomainResponse struct {
	Domain       *domain.Domain          `json:"domain"`
	Instructions service.DNSInstructions `json:"instructions"`
}

// ListDomainsResponse is the body of GET /domains.
type ListDomainsResponse struct {
	Domains []DomainResponse `json:"domains"`
}

// VerifyDomainResponse reports the outcome of a verification attempt.
type VerifyDomainResponse struct {
	Verified bool           `json:"verified"`
	Pending  bool           `json:"pending,omitempty"`
	Message  string         `json:"message"`
	Domain   *domain.Domain `json:"domain,omitempty"`
}

// RegisterDomain claims a hostname for the caller
//
//	@Summary		Register a custom domain
//	@Description	Claims a hostname and returns the CNAME and TXT records that prove control of it. Registering a hostname the caller already holds returns it unchanged.
//	@Tags			Domains
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		RegisterDomainRequest	true	"Hostname"
//	@Success		201		{object}	DomainResponse			"Domain registered"
//	@Failure		400		{object}	ErrorResponse			"Invalid hostname"
//	@Failure		409		{object}	ErrorResponse			"Hostname claimed by another account"
//	@Router			/domains [post]
func (h *DomainsHandler) RegisterDomain(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}

	var req RegisterDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid register domain request", zap.Error(err))
		writeError(w, h.log, "validation_error", "Invalid request format", http.StatusBadRequest)
		return
	}

	d, err := h.domains.Register(r.Context(), acc, req.Hostname)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, h.toResponse(d), http.StatusCreated)
}

// ListDomains returns the caller's domains
//
//	@Summary		List custom domains
//	@Tags			Domains
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListDomainsResponse	"Domains"
//	@Router			/domains [get]
func (h *DomainsHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}

	domains, err := h.domains.List(r.Context(), acc)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	resp := ListDomainsResponse{Domains: make([]DomainResponse, 0, len(domains))}
	for _, d := range domains {
		resp.Domains = append(resp.Domains, h.toResponse(d))
	}
	writeJSON(w, h.log, resp, http.StatusOK)
}

// GetDomain returns one domain with its DNS instructions
//
//	@Summary		Get a custom domain
//	@Tags			Domains
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int				true	"Domain ID"
//	@Success		200	{object}	DomainResponse	"Domain"
//	@Failure		403	{object}	ErrorResponse	"Access denied"
//	@Failure		404	{object}	ErrorResponse	"Domain not found"
//	@Router			/domains/{id} [get]
func (h *DomainsHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	d, err := h.domains.Get(r.Context(), acc, id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, h.toResponse(d), http.StatusOK)
}

// VerifyDomain checks the domain's DNS records
//
//	@Summary		Verify a custom domain
//	@Description	Looks up the TXT record. Returns 202 when DNS did not answer in time; retry later.
//	@Tags			Domains
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int						true	"Domain ID"
//	@Success		200	{object}	VerifyDomainResponse	"Verified, or the message names the record to fix"
//	@Success		202	{object}	VerifyDomainResponse	"Verification pending"
//	@Failure		404	{object}	ErrorResponse			"Domain not found"
//	@Failure		503	{object}	ErrorResponse			"DNS temporarily unavailable"
//	@Router			/domains/{id}/verify [put]
func (h *DomainsHandler) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	d, err := h.domains.Verify(r.Context(), acc, id)
	switch {
	case err == nil:
		writeJSON(w, h.log, VerifyDomainResponse{Verified: true, Message: "Domain verified", Domain: d}, http.StatusOK)
	case errors.Is(err, domain.ErrVerificationPending):
		writeJSON(w, h.log, VerifyDomainResponse{Pending: true, Message: "DNS lookup timed out, retry later", Domain: d}, http.StatusAccepted)
	case errors.Is(err, domain.ErrVerificationFailed):
		writeJSON(w, h.log, VerifyDomainResponse{Message: h.failureMessage(d, err), Domain: d}, http.StatusOK)
	default:
		writeServiceError(w, h.log, err)
	}
}

// RegenerateToken issues a new verification token
//
//	@Summary		Regenerate a verification token
//	@Tags			Domains
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int				true	"Domain ID"
//	@Success		200	{object}	DomainResponse	"Domain with new instructions"
//	@Failure		404	{object}	ErrorResponse	"Domain not found"
//	@Router			/domains/{id}/token [post]
func (h *DomainsHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	d, err := h.domains.RegenerateToken(r.Context(), acc, id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, h.toResponse(d), http.StatusOK)
}

// DeleteDomain removes a domain; its links move to the default domain
//
//	@Summary		Delete a custom domain
//	@Tags			Domains
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Domain ID"
//	@Success		204	"Domain deleted"
//	@Failure		404	{object}	ErrorResponse	"Domain not found"
//	@Router			/domains/{id} [delete]
func (h *DomainsHandler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	acc, ok := accountFrom(w, r, h.log)
	if !ok {
		return
	}
	id, ok := idParam(w, r, h.log)
	if !ok {
		return
	}

	if err := h.domains.Delete(r.Context(), acc, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// failureMessage tells the owner which record to fix.
func (h *DomainsHandler) failureMessage(d *domain.Domain, err error) string {
	var rec *dnscheck.RecordError
	if d == nil || !errors.As(err, &rec) {
		return "Verification records not found"
	}
	want := h.domains.Instructions(d)
	switch {
	case errors.Is(err, dnscheck.ErrTokenMismatch):
		return fmt.Sprintf("TXT record %s does not contain %s", rec.Name, want.TXTValue)
	case errors.Is(err, dnscheck.ErrCNAMEMismatch):
		return fmt.Sprintf("CNAME record %s points at %s, expected %s", rec.Name, rec.Got, want.CNAMETarget)
	case errors.Is(err, dnscheck.ErrRecordNotFound):
		return fmt.Sprintf("%s record %s not found", rec.Type, rec.Name)
	default:
		return fmt.Sprintf("%s record %s could not be verified", rec.Type, rec.Name)
	}
}

func (h *DomainsHandler) toResponse(d *domain.Domain) DomainResponse {
	return DomainResponse{Domain: d, Instructions: h.domains.Instructions(d)}
}
