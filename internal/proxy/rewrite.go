package proxy

import (
	"bytes"
	"io"
)

// streamReplacer is an io.Reader that substitutes every occurrence of old
// with new as bytes flow through it, without buffering the whole body and
// without parsing it as JSON: fields outside the rewritten host segments
// pass through byte-for-byte, including fields the gateway does not know
// about.
type streamReplacer struct {
	src     io.Reader
	old     []byte
	new     []byte
	buf     []byte // unresolved tail, may contain a partial match of old
	err     error
	readBuf []byte
}

func newStreamReplacer(src io.Reader, old, new string) *streamReplacer {
	return &streamReplacer{
		src:     src,
		old:     []byte(old),
		new:     []byte(new),
		readBuf: make([]byte, 32*1024),
	}
}

func (s *streamReplacer) Read(p []byte) (int, error) {
	for len(s.buf) < len(s.old) && s.err == nil {
		n, err := s.src.Read(s.readBuf)
		if n > 0 {
			s.buf = append(s.buf, s.readBuf[:n]...)
		}
		if err != nil {
			s.err = err
			break
		}
		if n == 0 {
			break
		}
	}

	if len(s.old) == 0 || len(s.buf) == 0 {
		if s.err != nil && len(s.buf) == 0 {
			return 0, s.err
		}
	}

	// Emit everything up to (and including a replacement of) the last
	// position where a match of `old` could no longer start, keeping a
	// tail of len(old)-1 bytes buffered in case a match spans reads.
	safeLen := len(s.buf)
	if s.err == nil && safeLen > len(s.old)-1 {
		safeLen -= len(s.old) - 1
	} else if s.err == nil {
		safeLen = 0
	}

	emit := s.buf[:safeLen]
	replaced := bytes.ReplaceAll(emit, s.old, s.new)

	n := copy(p, replaced)
	if n < len(replaced) {
		// p was smaller than the replaced chunk; stash the remainder by
		// putting back what we didn't consume of the original (rare path
		// for tiny destination buffers — acceptable to re-scan).
		leftover := replaced[n:]
		s.buf = append(append([]byte{}, leftover...), s.buf[safeLen:]...)
		return n, nil
	}

	s.buf = s.buf[safeLen:]
	if len(s.buf) == 0 && s.err != nil {
		return n, s.err
	}
	return n, nil
}

// rewriteURIHost replaces the uri's scheme+authority prefix (backendExternal)
// with gatewayExternal, used to keep clients pinned to the gateway for
// nextUri/infoUri/partialCancelUri.
func rewriteURIHost(body io.Reader, backendExternal, gatewayExternal string) io.Reader {
	if backendExternal == "" || backendExternal == gatewayExternal {
		return body
	}
	return newStreamReplacer(body, backendExternal, gatewayExternal)
}
