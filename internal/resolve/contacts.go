package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dwizi/bizops-assistant/internal/store"
)

// ContactInput identifies a contact inside one client. FullName is split when
// FirstName is empty.
type ContactInput struct {
	ID            string
	ClientID      string
	FirstName     string
	LastName      string
	FullName      string
	Email         string
	Phone         string
	ContactMethod string
	Country       string
	Specialty     string
}

// ContactRef extends Ref with the pending email marker.
type ContactRef struct {
	Ref
	Email        string
	PendingEmail bool
}

// ErrContactNameRequired is returned when a contact must be created but no
// name was given.
var ErrContactNameRequired = errors.New("contact name is required")

// Contact matches by email within the client, or by full name when no email
// is given. A contact created without an email gets a unique placeholder
// address and is flagged as pending.
func (r *Resolver) Contact(ctx context.Context, input ContactInput) (ContactRef, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		return ContactRef{Ref: Ref{ID: id}}, nil
	}
	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		return ContactRef{}, fmt.Errorf("contact resolution requires a client")
	}
	firstName, lastName := splitName(input)
	fullName := store.NormalizeText(firstName + " " + lastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if email != "" {
		existing, err := r.store.FindContactByEmail(ctx, clientID, email)
		if err == nil {
			return contactRef(existing, false), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return ContactRef{}, fmt.Errorf("find contact by email: %w", err)
		}
	}
	if email == "" && fullName != "" {
		existing, err := r.store.FindContactByName(ctx, clientID, fullName)
		if err == nil {
			return contactRef(existing, false), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return ContactRef{}, fmt.Errorf("find contact by name: %w", err)
		}
	}
	if firstName == "" {
		return ContactRef{}, ErrContactNameRequired
	}

	pending := email == ""
	if pending {
		email = r.PlaceholderEmail(fullName)
	}
	record, err := r.store.CreateContact(ctx, store.CreateContactInput{
		ClientID:      clientID,
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		PendingEmail:  pending,
		Phone:         input.Phone,
		ContactMethod: input.ContactMethod,
		Country:       input.Country,
		Specialty:     input.Specialty,
	})
	if errors.Is(err, store.ErrDuplicateContact) {
		existing, findErr := r.store.FindContactByEmail(ctx, clientID, email)
		if findErr != nil {
			return ContactRef{}, fmt.Errorf("reload duplicate contact: %w", findErr)
		}
		return contactRef(existing, false), nil
	}
	if err != nil {
		return ContactRef{}, fmt.Errorf("create contact: %w", err)
	}
	r.logger.Info("contact created by resolver", "contact_id", record.ID, "client_id", clientID, "pending_email", pending)
	return contactRef(record, true), nil
}

// PlaceholderEmail builds <slug>.<unix-millis>.<8-hex>@<domain>.
func (r *Resolver) PlaceholderEmail(name string) string {
	slug := slugify(name)
	if slug == "" {
		slug = "contacto"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s.%d.%s@%s", slug, r.now().UnixMilli(), suffix, r.placeholderDomain)
}

// IsPlaceholderEmail reports whether email was synthesized for this domain.
func (r *Resolver) IsPlaceholderEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), "@"+r.placeholderDomain)
}

func contactRef(record store.ContactRecord, created bool) ContactRef {
	return ContactRef{
		Ref:          Ref{ID: record.ID, Name: record.FullName(), Created: created},
		Email:        record.Email,
		PendingEmail: record.PendingEmail,
	}
}

func splitName(input ContactInput) (string, string) {
	first := store.NormalizeText(input.FirstName)
	last := store.NormalizeText(input.LastName)
	if first != "" {
		return first, last
	}
	parts := strings.Fields(input.FullName)
	if len(parts) == 0 {
		return "", last
	}
	if last == "" {
		last = strings.Join(parts[1:], " ")
	}
	return parts[0], last
}

func slugify(name string) string {
	folded := foldKey(name)
	var builder strings.Builder
	lastDot := true
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
			lastDot = false
			continue
		}
		if !lastDot {
			builder.WriteByte('.')
			lastDot = true
		}
	}
	return strings.Trim(builder.String(), ".")
}
