package safeurl

import "net/url"

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// Redact returns u with query string and userinfo stripped, for log lines.
// Station logo and stream URLs sometimes embed tokens in the query.
func Redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "[unparseable url]"
	}
	parsed.RawQuery = ""
	parsed.User = nil
	return parsed.String()
}
