// Package dnscheck verifies custom domain ownership through DNS TXT and CNAME records.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
)

var (
	ErrRecordNotFound  = errors.New("dns record not found")
	ErrTokenMismatch   = errors.New("verification token not published")
	ErrCNAMEMismatch   = errors.New("cname does not point at redirect endpoint")
	ErrLookupTimeout   = errors.New("dns lookup timed out")
	ErrLookupTemporary = errors.New("dns lookup temporarily failed")
)

// Resolver is the subset of *net.Resolver used for verification.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Checker compares published DNS records against expected values.
type Checker struct {
	resolver    Resolver
	txtPrefix   string
	cnameTarget string
}

func NewChecker(resolver Resolver, txtPrefix, cnameTarget string) *Checker {
	return &Checker{
		resolver:    resolver,
		txtPrefix:   txtPrefix,
		cnameTarget: canonical(cnameTarget),
	}
}

// TXTName returns the record name that must carry the verification token.
func (c *Checker) TXTName(hostname string) string {
	return c.txtPrefix + "." + hostname
}

// CNAMETarget returns the hostname custom domains must alias.
func (c *Checker) CNAMETarget() string {
	return c.cnameTarget
}

// RecordError names the record a verification attempt failed on. Err is one of the
// package's sentinel errors.
type RecordError struct {
	Type string // TXT or CNAME
	Name string
	// Got is the alias found when a CNAME points elsewhere.
	Got string
	Err error
}

func (e *RecordError) Error() string {
	if e.Got != "" {
		return fmt.Sprintf("%s %s: %v: got %s", e.Type, e.Name, e.Err, e.Got)
	}
	return fmt.Sprintf("%s %s: %v", e.Type, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Verify checks that the TXT record holds token and that hostname aliases the redirect
// endpoint. The caller bounds the lookups through ctx. Failures are *RecordError.
func (c *Checker) Verify(ctx context.Context, hostname, token string) error {
	txtName := c.TXTName(hostname)
	records, err := c.resolver.LookupTXT(ctx, txtName)
	if err != nil {
		return &RecordError{Type: "TXT", Name: txtName, Err: classify(ctx, err)}
	}
	if !slices.ContainsFunc(records, func(r string) bool { return strings.TrimSpace(r) == token }) {
		return &RecordError{Type: "TXT", Name: txtName, Err: ErrTokenMismatch}
	}

	target, err := c.resolver.LookupCNAME(ctx, hostname)
	if err != nil {
		return &RecordError{Type: "CNAME", Name: hostname, Err: classify(ctx, err)}
	}
	if canonical(target) != c.cnameTarget {
		return &RecordError{Type: "CNAME", Name: hostname, Got: canonical(target), Err: ErrCNAMEMismatch}
	}
	return nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ErrLookupTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return ErrRecordNotFound
		case dnsErr.IsTimeout:
			return ErrLookupTimeout
		case dnsErr.IsTemporary:
			return ErrLookupTemporary
		}
	}
	return fmt.Errorf("%w: %v", ErrLookupTemporary, err)
}

func canonical(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
