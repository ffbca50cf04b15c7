// Package credentials resolves the ordered list of credential sources tried
// when the extractor reports an age-restricted video.
package credentials

import "fmt"

// Credential identifies one way of authenticating the extractor: a Netscape
// cookie jar file, or a browser whose cookie store the extractor reads
// directly. The zero value means no credential.
type Credential struct {
	cookieFile string
	browser    string
}

// None is the empty credential used for the first, unauthenticated attempt.
var None = Credential{}

// FromCookieFile returns a credential backed by a cookies.txt file.
func FromCookieFile(path string) Credential {
	return Credential{cookieFile: path}
}

// FromBrowser returns a credential backed by an installed browser's cookies.
func FromBrowser(tag string) Credential {
	return Credential{browser: tag}
}

// IsNone reports whether the credential is empty.
func (c Credential) IsNone() bool {
	return c.cookieFile == "" && c.browser == ""
}

// ExtractorArgs returns the yt-dlp arguments selecting this credential.
// A cookie file wins over a browser tag.
func (c Credential) ExtractorArgs() []string {
	switch {
	case c.cookieFile != "":
		return []string{"--cookies", c.cookieFile}
	case c.browser != "":
		return []string{"--cookies-from-browser", c.browser}
	}
	return nil
}

// Describe returns the human string used in checking events.
func (c Credential) Describe() string {
	switch {
	case c.cookieFile != "":
		return "cookies.txt file"
	case c.browser != "":
		return fmt.Sprintf("%s cookies", c.browser)
	}
	return "no cookies"
}

// String implements fmt.Stringer for logging.
func (c Credential) String() string {
	switch {
	case c.cookieFile != "":
		return "cookie-file(" + c.cookieFile + ")"
	case c.browser != "":
		return "browser(" + c.browser + ")"
	}
	return "none"
}
