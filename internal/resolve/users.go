package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// UserInput references a team member by id, email or name.
type UserInput struct {
	ID    string
	Email string
	Name  string
}

func (u UserInput) empty() bool {
	return strings.TrimSpace(u.ID) == "" && strings.TrimSpace(u.Email) == "" && strings.TrimSpace(u.Name) == ""
}

// directorRoles may lead a project.
var directorRoles = map[authz.Role]struct{}{
	authz.RoleAdmin:      {},
	authz.RoleManagement: {},
	authz.RoleProjects:   {},
}

// Director resolves a project director: id, email, fuzzy name, the acting
// user when their role may direct projects, and finally the sentinel
// director account.
func (r *Resolver) Director(ctx context.Context, input UserInput, actor authz.Actor) (Ref, error) {
	ref, ok, err := r.User(ctx, input)
	if err != nil || ok {
		return ref, err
	}
	if _, canDirect := directorRoles[actor.Role]; canDirect && strings.TrimSpace(actor.ID) != "" {
		return Ref{ID: actor.ID, Fallback: true}, nil
	}
	record, created, err := r.store.EnsureUser(ctx, store.CreateUserInput{
		Email: "director.pendiente@" + r.placeholderDomain,
		Name:  SentinelDirectorName,
		Role:  string(authz.RoleProjects),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("ensure sentinel director: %w", err)
	}
	if created {
		r.logger.Info("sentinel director created", "user_id", record.ID)
	}
	return Ref{ID: record.ID, Name: record.Name, Created: created, Fallback: true}, nil
}

// Assignee resolves a task assignee, falling back to the acting user.
func (r *Resolver) Assignee(ctx context.Context, input UserInput, actor authz.Actor) (Ref, error) {
	ref, ok, err := r.User(ctx, input)
	if err != nil || ok {
		return ref, err
	}
	if !input.empty() {
		r.logger.Info("assignee not found, using acting user", "email", input.Email, "name", input.Name)
	}
	return Ref{ID: actor.ID, Fallback: true}, nil
}

// User runs the match part of the chain without any fallback. The boolean
// reports whether a user was found.
func (r *Resolver) User(ctx context.Context, input UserInput) (Ref, bool, error) {
	if id := strings.TrimSpace(input.ID); id != "" {
		return Ref{ID: id}, true, nil
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		record, err := r.store.FindUserByEmail(ctx, email)
		if err == nil {
			return Ref{ID: record.ID, Name: record.Name}, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Ref{}, false, fmt.Errorf("find user by email: %w", err)
		}
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		users, err := r.store.ListUsers(ctx, store.ListUsersInput{})
		if err != nil {
			return Ref{}, false, fmt.Errorf("list users: %w", err)
		}
		if record, ok := MatchUserByName(users, name); ok {
			return Ref{ID: record.ID, Name: record.Name}, true, nil
		}
	}
	return Ref{}, false, nil
}

// MatchUserByName picks the best user for a free-form name, ignoring case and
// accents. Tiers in order: exact, prefix, substring, every query token
// present. Within a tier the shortest name wins, then name, then id.
func MatchUserByName(users []store.UserRecord, query string) (store.UserRecord, bool) {
	key := foldKey(query)
	if key == "" {
		return store.UserRecord{}, false
	}
	tokens := strings.Fields(key)

	best := -1
	bestTier := 0
	for idx, user := range users {
		tier := matchTier(foldKey(user.Name), key, tokens)
		if tier == 0 {
			continue
		}
		if best == -1 || tier < bestTier || (tier == bestTier && lessUser(users[idx], users[best])) {
			best, bestTier = idx, tier
		}
	}
	if best == -1 {
		return store.UserRecord{}, false
	}
	return users[best], true
}

func matchTier(name, key string, tokens []string) int {
	switch {
	case name == key:
		return 1
	case strings.HasPrefix(name, key):
		return 2
	case strings.Contains(name, key):
		return 3
	}
	nameTokens := strings.Fields(name)
	for _, token := range tokens {
		found := false
		for _, candidate := range nameTokens {
			if strings.HasPrefix(candidate, token) {
				found = true
				break
			}
		}
		if !found {
			return 0
		}
	}
	return 4
}

func lessUser(a, b store.UserRecord) bool {
	if len(a.Name) != len(b.Name) {
		return len(a.Name) < len(b.Name)
	}
	if keyA, keyB := foldKey(a.Name), foldKey(b.Name); keyA != keyB {
		return keyA < keyB
	}
	return a.ID < b.ID
}

// foldKey lowercases, strips diacritics and collapses whitespace.
func foldKey(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, input)
	if err != nil {
		folded = input
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
