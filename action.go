package reqsvc

import (
	"net/url"
	"regexp"
	"strings"
)

// syntheticBase lets relative endpoints be parsed. It never appears in the
// output of ResolveAction.
const syntheticBase = "https://0.cc"

var absoluteURLPattern = regexp.MustCompile(`^(\w+:)?//`)

// IsAbsoluteURL reports whether s has a scheme followed by "//" or is
// protocol-relative.
func IsAbsoluteURL(s string) bool {
	return absoluteURLPattern.MatchString(s)
}

// Action is the method and URL a request resolves to.
// Method is empty when neither the request nor the target provides one.
type Action struct {
	Method string `json:"method,omitempty"`
	URL    string `json:"url"`
}

// ResolveAction returns the method and URL for a call to target with req,
// relative to endpoint.
//
// The target contributes the method and location when it has the form
// "METHOD location" and req does not set them already. Relative locations
// are joined to the endpoint path, query values are appended and
// colon-prefixed placeholders (e.g. "/items/:id") are replaced with the
// matching params.
//
// The URL is absolute when either the location or the endpoint is absolute.
// Otherwise only the path, query and fragment are returned.
//
// ResolveAction never fails: malformed input yields a best-effort result.
func ResolveAction(req *Request, target Target, endpoint string) Action {
	if req == nil {
		req = &Request{}
	}

	method := req.Method
	location := req.URL
	if location == "" {
		location = req.Path
	}

	if targetMethod, targetLocation, ok := target.Split(); ok {
		if method == "" {
			method = targetMethod
		}
		if location == "" {
			location = targetLocation
		}
	}

	var u *url.URL
	absolute := false

	if location != "" && IsAbsoluteURL(location) {
		if parsed, err := url.Parse(location); err == nil {
			u = parsed
			absolute = true
		}
	}

	if u == nil {
		u = parseEndpoint(endpoint)
		absolute = IsAbsoluteURL(endpoint)

		if location != "" {
			setEscapedPath(u, joinPath(u.EscapedPath(), escapePathname(location)))
		}
	}

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	appendQuery(u, req.Query)
	replaceParams(u, req.Params)

	if absolute {
		return Action{Method: method, URL: u.String()}
	}
	return Action{Method: method, URL: relativeReference(u)}
}

// parseEndpoint resolves endpoint against the synthetic base.
func parseEndpoint(endpoint string) *url.URL {
	base, _ := url.Parse(syntheticBase)
	ref, err := url.Parse(endpoint)
	if err != nil {
		return base
	}
	return base.ResolveReference(ref)
}

// joinPath joins the endpoint path and a relative location with exactly
// one slash.
func joinPath(endpointPath, location string) string {
	return strings.TrimSuffix(endpointPath, "/") + "/" + strings.TrimPrefix(location, "/")
}

// escapePathname percent-encodes the characters of s that cannot appear in
// a URL path. Valid escapes already in s are kept; a stray "%" is encoded.
func escapePathname(s string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			b.WriteString(escapePath(s))
			return b.String()
		}
		b.WriteString(escapePath(s[:i]))
		if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteString(s[i : i+3])
			s = s[i+3:]
		} else {
			b.WriteString("%25")
			s = s[i+1:]
		}
	}
}

func escapePath(s string) string {
	return (&url.URL{Path: s}).EscapedPath()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// setEscapedPath sets the path of u from its escaped form.
func setEscapedPath(u *url.URL, escaped string) {
	path, err := url.PathUnescape(escaped)
	if err != nil {
		u.Path, u.RawPath = escaped, ""
		return
	}
	u.Path, u.RawPath = path, escaped
}

// formEscaper turns url.QueryEscape output into the
// application/x-www-form-urlencoded byte set.
var formEscaper = strings.NewReplacer("~", "%7E", "%2A", "*")

func formEscape(s string) string {
	return formEscaper.Replace(url.QueryEscape(s))
}

// appendQuery appends query to the query string of u, keeping whatever
// u already has.
func appendQuery(u *url.URL, query Values) {
	if len(query) == 0 {
		return
	}
	var pairs []string
	for _, key := range sortedKeys(query) {
		value := query[key]
		if isNil(value) {
			continue
		}
		for _, s := range expand(value) {
			pairs = append(pairs, formEscape(key)+"="+formEscape(s))
		}
	}
	if len(pairs) == 0 {
		return
	}
	encoded := strings.Join(pairs, "&")
	if u.RawQuery == "" {
		u.RawQuery = encoded
	} else {
		u.RawQuery += "&" + encoded
	}
}

// replaceParams substitutes every whole-word ":key" in the escaped path of
// u. Values are escaped like a location, so escapes they carry are kept.
func replaceParams(u *url.URL, params Values) {
	if len(params) == 0 {
		return
	}
	path := u.EscapedPath()
	for _, key := range sortedKeys(params) {
		value := params[key]
		if isNil(value) {
			continue
		}
		re, err := regexp.Compile(":" + regexp.QuoteMeta(escapePathname(key)) + `\b`)
		if err != nil {
			continue
		}
		path = re.ReplaceAllLiteralString(path, escapePathname(stringify(value)))
	}
	setEscapedPath(u, path)
}

// relativeReference returns the path, query and fragment of u.
func relativeReference(u *url.URL) string {
	var b strings.Builder
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}
