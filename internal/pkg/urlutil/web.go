package urlutil

import (
	"net/url"
	"strings"
)

// AppURL joins an absolute app URL and a local path, which may carry its
// own query. Returns a URL like: {baseURL}{path}?{query}
func AppURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	ref, err := url.Parse("/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}

	u.Path += ref.Path
	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// LoginPath builds the path that starts a social sign-in.
// Returns a path like: /auth/login/{provider}?return_to={returnTo}
func LoginPath(provider, returnTo string) string {
	p := "/auth/login/" + url.PathEscape(provider)
	if returnTo != "" {
		p += "?" + url.Values{"return_to": {returnTo}}.Encode()
	}
	return p
}

// IsLocalPath reports whether p is a path on this site, so it is safe to
// redirect to. Scheme-relative and backslash forms are rejected.
func IsLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
