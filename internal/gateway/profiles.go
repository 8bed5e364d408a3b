package gateway

import (
	"context"
	"net/url"
	"strings"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// FetchProfile returns the profile row for userID.
// An absent row yields (zero, false, nil).
func (c *Client) FetchProfile(ctx context.Context, userID string) (domain.UserProfile, bool, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+userID)
	var profile domain.UserProfile
	if err := c.get(ctx, "user_profiles", query, true, &profile); err != nil {
		if notFound(err) {
			return domain.UserProfile{}, false, nil
		}
		return domain.UserProfile{}, false, err
	}
	return profile, true, nil
}

// SearchProfiles matches query as a case-insensitive substring of
// username or email, bounded to 10 rows. Callers are expected to filter
// out the current user themselves.
func (c *Client) SearchProfiles(ctx context.Context, search string) ([]domain.UserProfile, error) {
	pattern := quotePattern(strings.TrimSpace(search))
	query := url.Values{}
	query.Set("select", "*")
	query.Set("or", "(username.ilike."+pattern+",email.ilike."+pattern+")")
	query.Set("limit", "10")
	var profiles []domain.UserProfile
	if err := c.get(ctx, "user_profiles", query, false, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// quotePattern wraps user input in a double-quoted substring pattern.
// The quoting keeps commas and parentheses from breaking the or=(...)
// grouping, and the LIKE wildcards are escaped so a search for "100%"
// stays literal.
func quotePattern(s string) string {
	// Literal LIKE pattern first: backslash before the wildcards.
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	// Then the store's own string quoting, where backslash escapes the
	// next character inside double quotes.
	s = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
	return `"%` + s + `%"`
}
