package proxy

import "regexp"

// capWriter collects up to max bytes written to it and silently discards the
// rest; it never returns an error so it can sit in an io.MultiWriter beside
// the real client response writer without affecting the forward path.
type capWriter struct {
	buf []byte
	max int
}

func newCapWriter(max int) *capWriter {
	return &capWriter{max: max}
}

func (c *capWriter) Write(p []byte) (int, error) {
	if len(c.buf) < c.max {
		room := c.max - len(c.buf)
		if room > len(p) {
			room = len(p)
		}
		c.buf = append(c.buf, p[:room]...)
	}
	return len(p), nil
}

var (
	idPattern       = regexp.MustCompile(`"id"\s*:\s*"([^"]+)"`)
	nextURIPattern  = regexp.MustCompile(`"nextUri"\s*:\s*"`)
	statePattern    = regexp.MustCompile(`"state"\s*:\s*"(FINISHED|FAILED|CANCELED|RUNNING|QUEUED|PLANNING)"`)
)

// captured holds whatever control fields were found in a capped prefix of a
// statement response body.
type captured struct {
	queryID    string
	hasNextURI bool
	state      string
}

func parseCaptured(body []byte) captured {
	var c captured
	if m := idPattern.FindSubmatch(body); m != nil {
		c.queryID = string(m[1])
	}
	c.hasNextURI = nextURIPattern.Match(body)
	if m := statePattern.FindSubmatch(body); m != nil {
		c.state = string(m[1])
	}
	return c
}

// isTerminal reports a terminal Trino query state with no further pages
// to follow.
func (c captured) isTerminal() bool {
	switch c.state {
	case "FINISHED", "FAILED", "CANCELED":
		return !c.hasNextURI
	}
	return false
}
