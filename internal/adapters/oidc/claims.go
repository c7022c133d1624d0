package oidc

import (
	"fmt"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/unevent/unevent-api/internal/domain/auth"
)

// claimSet is a decoded ID token or UserInfo body.
type claimSet map[string]any

// first returns the first non-blank string claim among keys.
func (c claimSet) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := c[k].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type profile struct {
	subject string
	email   string
	given   string
	family  string
	groups  []string
}

func (p profile) incomplete() bool { return p.subject == "" || p.email == "" }

// fill copies o's values into the fields p lacks.
func (p *profile) fill(o profile) {
	for _, f := range [][2]*string{
		{&p.subject, &o.subject},
		{&p.email, &o.email},
		{&p.given, &o.given},
		{&p.family, &o.family},
	} {
		if *f[0] == "" {
			*f[0] = *f[1]
		}
	}
	if len(p.groups) == 0 {
		p.groups = o.groups
	}
}

func (p profile) identity(expires time.Time) domainauth.Identity {
	return domainauth.Identity{
		UserID:    p.subject,
		FirstName: p.given,
		LastName:  p.family,
		Email:     p.email,
		Groups:    p.groups,
		ExpiresAt: expires,
	}
}

func readProfile(c claimSet, groupsExpr string) (profile, error) {
	groups, err := searchGroups(groupsExpr, c)
	if err != nil {
		return profile{}, err
	}
	return profile{
		subject: c.first("sub", "preferred_username"),
		email:   c.first("email"),
		given:   c.first("given_name"),
		family:  c.first("family_name"),
		groups:  groups,
	}, nil
}

// searchGroups accepts a string or a list of strings. Non-string list items
// are skipped and a missing claim means no groups.
func searchGroups(expr string, c claimSet) ([]string, error) {
	res, err := jmespath.Search(expr, map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("evaluate groups claim %q: %w", expr, err)
	}
	switch v := res.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("groups claim %q is %T, want string list", expr, res)
}
